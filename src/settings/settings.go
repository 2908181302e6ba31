package settings

import "sync"

type Arguments struct {
	// MongoURI is the connection string of the backing document store.
	MongoURI string

	// Database is the database name documents, roles and permissions
	// live in.
	Database string

	// SchemaFile declares the document types to register at startup.
	SchemaFile string

	// UsersFile is the credential store path used when auth is enabled.
	UsersFile string

	LogDir string

	// The mode of operation
	// standalone, cluster
	Mode string

	// the host name or IP address to listen on
	Host string

	// the port number to listen on
	Port int

	// Strongly verbose logging
	Verbose bool

	Debug bool

	PrintToScreen bool

	AuthEnabled bool // Enable authentication

	Version string
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the global settings instance.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{}
	})
	return instance
}
