package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// Configurable receives the module's section from the `modules:` map of
// chatmem.yaml. It runs first, before Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner is implemented by modules that need setup after instantiation.
// This is where modules should set defaults, register secrets and resolve
// shared services via AppContext.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator is implemented by modules that can verify their configuration
// is complete and correct. Called after Provision().
// Validate should be read-only, with no side effects.
type Validator interface {
	Validate() error
}

// Starter begins background work such as Telegram polling or the gateway
// listener. It runs once every module is provisioned and the router is wired.
type Starter interface {
	Start() error
}

// Stopper releases what Start acquired. Modules stop in reverse start order.
type Stopper interface {
	Stop(ctx context.Context) error
}
