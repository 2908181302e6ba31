package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"docbase/src/auth"
	"docbase/src/directors"
	"docbase/src/permissions"
	"docbase/src/query"
	"docbase/src/registry"
	"docbase/src/schema"
	"docbase/src/settings"
	"docbase/src/store"
)

// Server is the embedding HTTP layer: it owns the wired registry and
// services and translates requests into core operations.
type Server struct {
	Host        string
	Port        int
	AuthEnabled bool

	client   *mongo.Client
	registry *registry.Registry
	manager  *directors.ServiceManager
	users    *auth.UserStore
	logger   *zap.SugaredLogger

	httpServer *http.Server
}

// InitServer initializes the server: logger, store connection, type
// registration from the schema file, and one collection service per
// registered type.
func InitServer(config *settings.Arguments) (*Server, error) {

	var logger *zap.Logger
	var err error

	if config.Debug {
		// Development configuration with more verbose output
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stdout"}
		logger, err = z.Build()
	} else {
		// Production configuration
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create a sugared logger for easier API
	sugar := logger.Sugar()

	// Replace standard log with zap
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	db := client.Database(config.Database)

	// Register document types from the schema file.
	reg := registry.NewRegistry(sugar)
	if config.SchemaFile != "" {
		defs, err := registry.LoadSchemaFile(config.SchemaFile)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			fields, err := def.FieldDefs()
			if err != nil {
				return nil, fmt.Errorf("type %q: %w", def.TypeName, err)
			}
			model := &registry.InfoModel{
				TypeName:     def.TypeName,
				Route:        def.Route,
				DisplayLabel: def.Label,
				Tree:         schema.BuildPathTree(fields),
				Store:        store.NewMongoStore(db.Collection(def.TypeName), sugar),
			}
			if err := reg.Register(model); err != nil {
				return nil, err
			}
		}
	}

	grantStore := permissions.NewMongoGrantStore(db.Collection("permissions"), sugar)
	roleStore := permissions.NewMongoRoleStore(db.Collection("roles"), sugar)
	resolver := &query.LabelResolver{Registry: reg, Logger: sugar}

	manager := directors.InitServiceManager(sugar)
	for _, typeName := range reg.Types() {
		model, err := reg.Get(typeName)
		if err != nil {
			return nil, err
		}
		compiler, err := query.NewCompiler(typeName, reg, resolver, sugar)
		if err != nil {
			return nil, err
		}
		perms := &permissions.Resolver{
			Table:  typeName,
			Grants: grantStore,
			Roles:  roleStore,
			Docs:   model.Store,
			Logger: sugar,
		}
		manager.Register(directors.NewCollectionService(model, compiler, perms, sugar))
	}

	var users *auth.UserStore
	if config.AuthEnabled {
		users, err = auth.NewUserStore(config.UsersFile, sugar)
		if err != nil {
			return nil, fmt.Errorf("failed to open user store: %w", err)
		}
	}

	return &Server{
		Host:        config.Host,
		Port:        config.Port,
		AuthEnabled: config.AuthEnabled,
		client:      client,
		registry:    reg,
		manager:     manager,
		users:       users,
		logger:      sugar,
	}, nil
}

// Start listens and serves until Stop is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	s.logger.Infow("server listening",
		zap.String("host", s.Host),
		zap.Int("port", s.Port))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the listener down and disconnects from the store.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	return s.client.Disconnect(ctx)
}
