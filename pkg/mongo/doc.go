// Package mongo connects to MongoDB for the document-backed billing store.
//
// Configuration comes from MONGODB_* environment variables through Config.
// New retries the initial connect and ping, honouring context cancellation,
// and returns ErrFailedToConnectToMongo joined with the last driver error.
//
//	cfg := config.MustLoad[mongo.Config]()
//	db, err := mongo.NewWithDatabase(ctx, cfg, "")
//	if err != nil {
//		return err
//	}
//	store := mongostore.New(db)
//
// Healthcheck plugs into the readiness endpoint.
package mongo
