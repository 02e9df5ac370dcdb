// Package app composes the wound assessment service.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Application struct and wiring
//	├── domain/wound/       # Analysis and comparison records
//	├── storage/            # Store interfaces and the creation clock
//	│   ├── memory/         # Volatile implementation
//	│   └── postgres/       # PostgreSQL implementation
//	├── services/
//	│   ├── vision/         # OpenAI-compatible model client
//	│   ├── images/         # Image reference stores (inline, S3)
//	│   └── assessment/     # Analyze and compare flows
//	├── httpapi/            # HTTP handlers and routing
//	├── metrics/            # Prometheus collectors
//	└── runtime/            # Config to running HTTP server
//
// # Dependency Direction
//
//	cmd/feridas/
//	      │
//	      ▼
//	internal/app/runtime ──► internal/app (composition)
//	                               │
//	                               ├──► services/assessment
//	                               │       ├──► services/vision
//	                               │       ├──► services/images
//	                               │       └──► storage
//	                               └──► internal/platform/migrations
package app
