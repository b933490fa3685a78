package rbac

type Role string
type Action string

const (
	RoleVisitor Role = "visitor"
	RoleEditor  Role = "editor"
	RoleAdmin   Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionWrite   Action = "write"
	ActionPublish Action = "publish"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionWrite
	case RoleVisitor:
		return action == ActionRead
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleVisitor, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleVisitor
	}
}
