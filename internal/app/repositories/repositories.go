package repositories

import (
	"github.com/Gangireddy387/OnlineNotebook/internal/db"
)

// Repositories holds the postgres repository instances and satisfies Store
type Repositories struct {
	*ChatRepository
	*MessageRepository
	*ChatRequestRepository
	*PresenceRepository
	*DirectoryRepository

	database *db.PostgresDB
}

var _ Store = (*Repositories)(nil)

// NewRepositories initializes all repositories on one pool
func NewRepositories(database *db.PostgresDB) *Repositories {
	return &Repositories{
		ChatRepository:        NewChatRepository(database.Pool),
		MessageRepository:     NewMessageRepository(database.Pool),
		ChatRequestRepository: NewChatRequestRepository(database.Pool),
		PresenceRepository:    NewPresenceRepository(database.Pool),
		DirectoryRepository:   NewDirectoryRepository(database.Pool),
		database:              database,
	}
}

// Close releases the underlying pool
func (r *Repositories) Close() error {
	r.database.Close()
	return nil
}
