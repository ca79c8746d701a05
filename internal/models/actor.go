package models

// Actor identifies who performs an archive operation and from where.
type Actor struct {
	UserID    string
	Email     string
	Role      UserRole
	IPAddress string
	UserAgent string
	SessionID string
}

// SystemActor is used by background jobs and the admin CLI.
func SystemActor(agent string) Actor {
	return Actor{
		UserID:    "system",
		Role:      RoleSystemManager,
		IPAddress: "system",
		UserAgent: agent,
		SessionID: "system",
	}
}

// IsSystemManager reports whether the actor bypasses retention locks.
func (a Actor) IsSystemManager() bool {
	return a.Role == RoleSystemManager
}

// CanManage reports whether the actor may edit reference data (categories, types, rules).
func (a Actor) CanManage() bool {
	return a.Role == RoleSystemManager || a.Role == RoleArchiveManager
}

// CanWrite reports whether the actor may upload and modify documents.
func (a Actor) CanWrite() bool {
	return a.CanManage() || a.Role == RoleArchiveUser
}

// CanView reports whether the actor may see a document with the given access level.
func (a Actor) CanView(level AccessLevel, createdBy string) bool {
	switch a.Role {
	case RoleSystemManager, RoleArchiveManager:
		return true
	case RoleArchiveUser:
		return level != AccessRestricted || createdBy == a.UserID
	case RoleArchiveViewer:
		return level == AccessPublic || level == AccessInternal
	default:
		return false
	}
}
