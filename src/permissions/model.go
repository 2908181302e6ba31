package permissions

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Level is a totally ordered permission level. Higher levels include
// everything below them when compared numerically by the cascade.
type Level int

const (
	LevelNone   Level = 0
	LevelAdd    Level = 1
	LevelRead   Level = 2
	LevelUpdate Level = 3
	LevelDelete Level = 4
	LevelAdmin  Level = 5
)

func (l Level) String() string {
	switch l {
	case LevelAdd:
		return "add"
	case LevelRead:
		return "read"
	case LevelUpdate:
		return "update"
	case LevelDelete:
		return "delete"
	case LevelAdmin:
		return "admin"
	}
	return "none"
}

// Grant gives one user one level on one specific document of a type.
// Grants are created explicitly, consulted on every check, and removed
// when revoked or when the owning document is deleted.
type Grant struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Table  string             `bson:"table"`
	Object primitive.ObjectID `bson:"object"`
	User   primitive.ObjectID `bson:"user"`
	Level  Level              `bson:"level"`
}

// SchemaGrant is one type-level entry inside a role.
type SchemaGrant struct {
	Name  string `bson:"name"`
	Level Level  `bson:"level"`
}

// Role names a reusable set of type-level grants. A user's effective
// role level for a type is the maximum across all roles held; holding
// no roles grants nothing.
type Role struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    string             `bson:"name"`
	Schemas []SchemaGrant      `bson:"schemas"`
}

// User is the core's view of the external identity: an id, the role
// ids held, and the super-admin flag that bypasses every check.
type User struct {
	ID         primitive.ObjectID
	RoleIDs    []primitive.ObjectID
	SuperAdmin bool
}

// Decision is the outcome of a permission check. A denial is a normal
// result, not an error; Reason carries the denying layer's
// human-readable explanation.
type Decision struct {
	Granted bool
	Reason  string
}

func granted(reason string) Decision {
	return Decision{Granted: true, Reason: reason}
}

func denied(reason string) Decision {
	return Decision{Granted: false, Reason: reason}
}
