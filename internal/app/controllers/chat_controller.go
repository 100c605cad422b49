package controllers

import (
	"net/http"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/models"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/services"
	"github.com/Gangireddy387/OnlineNotebook/internal/middleware"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/apperrors"
	"github.com/Gangireddy387/OnlineNotebook/internal/pkg/helpers"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatController handles the REST side of chats and chat requests
type ChatController struct {
	chatService    services.ChatService
	requestService services.ChatRequestService
}

// NewChatController creates a new ChatController
func NewChatController(chatService services.ChatService, requestService services.ChatRequestService) *ChatController {
	return &ChatController{
		chatService:    chatService,
		requestService: requestService,
	}
}

func principalOrAbort(ctx *gin.Context) (models.Principal, bool) {
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.NewAuthenticationError("Authentication required", nil))
	}
	return principal, ok
}

func pathID(ctx *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("Invalid "+name, map[string]interface{}{
			name: "must be a valid id",
		}))
		return uuid.Nil, false
	}
	return id, true
}

// ListChats godoc
// @Summary List my chats
// @Description Chats the caller participates in, most recently active first
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.ChatResponse}
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /chat [get]
func (c *ChatController) ListChats(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	chats, err := c.chatService.ListChats(ctx.Request.Context(), principal.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(chats))
}

// GetMessages godoc
// @Summary Get chat messages
// @Description One page of messages in chronological order
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param chatId path string true "Chat ID"
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Page size (default: 50)"
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageResponse}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Not a participant"
// @Router /chat/{chatId}/messages [get]
func (c *ChatController) GetMessages(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	chatID, ok := pathID(ctx, "chatId")
	if !ok {
		return
	}
	page, limit := helpers.ParsePaginationParams(ctx)
	messages, err := c.chatService.GetMessages(ctx.Request.Context(), chatID, principal.ID, page, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(messages))
}

// GetParticipants godoc
// @Summary Get chat participants
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param chatId path string true "Chat ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.ParticipantResponse}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Not a participant"
// @Router /chat/{chatId}/participants [get]
func (c *ChatController) GetParticipants(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	chatID, ok := pathID(ctx, "chatId")
	if !ok {
		return
	}
	participants, err := c.chatService.GetParticipants(ctx.Request.Context(), chatID, principal.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(participants))
}

// SearchUsers godoc
// @Summary Search users to chat with
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Param q query string true "Name or email fragment, at least 2 characters"
// @Success 200 {object} dto.APIResponse{data=[]dto.PrincipalDisplay}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /chat/users/search [get]
func (c *ChatController) SearchUsers(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	users, err := c.chatService.SearchUsers(ctx.Request.Context(), principal.ID, ctx.Query("q"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(users))
}

// SendRequest godoc
// @Summary Send a chat request
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendChatRequestRequest true "Receiver and optional message"
// @Success 201 {object} dto.APIResponse{data=dto.ChatRequestResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail} "Request to self"
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail} "Already requested or connected"
// @Router /chat/request [post]
func (c *ChatController) SendRequest(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	var req dto.SendChatRequestRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("Invalid receiverId", nil))
		return
	}
	request, err := c.requestService.SendRequest(ctx.Request.Context(), principal.ID, receiverID, req.Message)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewMessageResponse(request, "Chat request sent"))
}

// ListRequests godoc
// @Summary List my chat requests
// @Tags chat
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ChatRequestsResponse}
// @Router /chat/requests/all [get]
func (c *ChatController) ListRequests(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	requests, err := c.requestService.ListRequests(ctx.Request.Context(), principal.ID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(requests))
}

// RespondToRequest godoc
// @Summary Accept or decline a chat request
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param requestId path string true "Chat request ID"
// @Param request body dto.RespondChatRequestRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.RespondChatRequestResult}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail} "Not the receiver"
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail} "Already responded"
// @Router /chat/request/{requestId}/respond [put]
func (c *ChatController) RespondToRequest(ctx *gin.Context) {
	principal, ok := principalOrAbort(ctx)
	if !ok {
		return
	}
	requestID, ok := pathID(ctx, "requestId")
	if !ok {
		return
	}
	var req dto.RespondChatRequestRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	result, err := c.requestService.RespondToRequest(ctx.Request.Context(), requestID, principal.ID, models.ChatRequestStatus(req.Status))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewMessageResponse(result, "Chat request "+req.Status))
}

// ListAllChats godoc
// @Summary List every chat (admin)
// @Tags chat-admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} dto.APIResponse{data=[]dto.ChatResponse}
// @Failure 403 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /chat/admin/all [get]
func (c *ChatController) ListAllChats(ctx *gin.Context) {
	page, limit := helpers.ParsePaginationParams(ctx)
	chats, err := c.chatService.ListAllChats(ctx.Request.Context(), page, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(chats))
}

// GetChatMessagesAsAdmin godoc
// @Summary Read any chat's messages (admin)
// @Tags chat-admin
// @Produce json
// @Security BearerAuth
// @Param chatId path string true "Chat ID"
// @Success 200 {object} dto.APIResponse{data=[]dto.MessageResponse}
// @Failure 404 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Router /chat/admin/{chatId}/messages [get]
func (c *ChatController) GetChatMessagesAsAdmin(ctx *gin.Context) {
	chatID, ok := pathID(ctx, "chatId")
	if !ok {
		return
	}
	page, limit := helpers.ParsePaginationParams(ctx)
	messages, err := c.chatService.GetChatMessagesAsAdmin(ctx.Request.Context(), chatID, page, limit)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(messages))
}
