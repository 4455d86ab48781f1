// Basketrec - Context-Aware Basket Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/basketrec

/*
Package supervisor provides process supervision for Basketrec using suture v4.

Services are grouped into layers so that a crash in one layer restarts only
that layer's services:

	RootSupervisor ("basketrec")
	├── DataSupervisor ("data-layer")
	│   └── CatalogGCService (badger catalog only)
	├── EngineSupervisor ("engine-layer")
	│   └── CacheJanitorService (if CACHE_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The rule index is loaded once before the tree starts and is never mutated,
so no service owns it.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
	    return err
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout, logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

Supervisor events (service start, failure, backoff) are logged through the
sutureslog adapter.

See also: internal/supervisor/services for the service implementations.
*/
package supervisor
