// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventschema

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Name identifies a schema. The schema file for a name is "<name>.json".
type Name string

// Schemas known to this package.
const (
	RoomEncrypted              Name = "room_encrypted"
	RoomOlmEncrypted           Name = "room_olm_encrypted"
	RoomMegolmEncrypted        Name = "room_megolm_encrypted"
	RoomKeyEvent               Name = "room_key_event"
	ForwardedRoomKeyEvent      Name = "forwarded_room_key_event"
	KeyRequestEnvelope         Name = "key_request_envelope"
	RoomKeyRequest             Name = "room_key_request"
	RoomKeyRequestCancellation Name = "room_key_request_cancellation"
)

// Names lists every schema a Registry must provide.
var Names = []Name{
	RoomEncrypted,
	RoomOlmEncrypted,
	RoomMegolmEncrypted,
	RoomKeyEvent,
	ForwardedRoomKeyEvent,
	KeyRequestEnvelope,
	RoomKeyRequest,
	RoomKeyRequestCancellation,
}

// Verifier checks a decoded payload against a named schema. It returns
// nil when the payload matches and a *ValidationError when it does not.
// Implementations must not modify the payload.
type Verifier interface {
	Verify(name Name, payload any) error
}

//go:embed schemas/*.json
var embedded embed.FS

// Registry is a set of compiled schemas. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	schemas map[Name]*jsonschema.Schema
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	sub, err := fs.Sub(embedded, "schemas")
	if err != nil {
		panic("eventschema: embedded schemas: " + err.Error())
	}
	registry, err := Load(sub)
	if err != nil {
		panic("eventschema: compiling embedded schemas: " + err.Error())
	}
	return registry
})

// Default returns the registry compiled from the embedded schemas.
// Compilation happens once, on first call.
func Default() *Registry {
	return defaultRegistry()
}

// Load compiles every schema in [Names] from fsys. Each schema is read
// from "<name>.json" at the root of fsys. Missing or invalid files are
// an error.
func Load(fsys fs.FS) (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	for _, name := range Names {
		data, err := fs.ReadFile(fsys, string(name)+".json")
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		if err := compiler.AddResource(resourceURL(name), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("adding schema %s: %w", name, err)
		}
	}

	registry := &Registry{schemas: make(map[Name]*jsonschema.Schema, len(Names))}
	for _, name := range Names {
		compiled, err := compiler.Compile(resourceURL(name))
		if err != nil {
			return nil, fmt.Errorf("compiling schema %s: %w", name, err)
		}
		registry.schemas[name] = compiled
	}
	return registry, nil
}

// Verify implements Verifier. payload must be a decoded JSON value:
// map[string]any, []any, string, bool, nil, float64, or json.Number.
func (r *Registry) Verify(name Name, payload any) error {
	compiled, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("eventschema: unknown schema %q", name)
	}
	if err := compiled.Validate(payload); err != nil {
		return &ValidationError{Schema: name, Err: err}
	}
	return nil
}

func resourceURL(name Name) string {
	return "https://bureau.foundation/schema/cryptoevents/" + string(name) + ".json"
}
