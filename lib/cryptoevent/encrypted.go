// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cryptoevent

import (
	"fmt"

	"github.com/bureau-foundation/cryptoevents/lib/digest"
	"github.com/bureau-foundation/cryptoevents/lib/eventschema"
	"github.com/bureau-foundation/cryptoevents/lib/schema"
)

// Kind identifies the variant of an encrypted event.
type Kind int

const (
	// KindUnknown is an algorithm this package cannot interpret.
	KindUnknown Kind = iota
	// KindOlm is an [*OlmEvent].
	KindOlm
	// KindMegolm is a [*MegolmEvent].
	KindMegolm
)

func (k Kind) String() string {
	switch k {
	case KindOlm:
		return "olm"
	case KindMegolm:
		return "megolm"
	default:
		return "unknown"
	}
}

// algorithmKinds maps content.algorithm to a variant. Anything not
// listed is KindUnknown.
var algorithmKinds = map[string]Kind{
	schema.AlgorithmOlm:    KindOlm,
	schema.AlgorithmMegolm: KindMegolm,
}

// ClassifyAlgorithm returns the variant for an algorithm name, or
// KindUnknown.
func ClassifyAlgorithm(algorithm string) Kind {
	return algorithmKinds[algorithm]
}

// EncryptedEvent is an undecrypted m.room.encrypted event. The concrete
// type is *OlmEvent or *MegolmEvent; no other type implements it.
type EncryptedEvent interface {
	Kind() Kind
	isEncryptedEvent()
}

// ParseEncrypted validates payload as a generic encrypted event and
// dispatches on content.algorithm to ParseOlm or ParseMegolm.
//
// An unrecognised algorithm returns (nil, nil). A payload that fails
// the generic or the algorithm-specific schema returns an error wrapping
// *eventschema.ValidationError.
func (p *Parser) ParseEncrypted(payload map[string]any) (EncryptedEvent, error) {
	if err := p.verify(eventschema.RoomEncrypted, payload); err != nil {
		return nil, fmt.Errorf("parsing encrypted event: %w", err)
	}

	algorithm := stringField(objectField(payload, "content"), "algorithm")
	switch ClassifyAlgorithm(algorithm) {
	case KindOlm:
		event, err := p.ParseOlm(payload)
		if err != nil {
			return nil, err
		}
		return event, nil
	case KindMegolm:
		event, err := p.ParseMegolm(payload)
		if err != nil {
			return nil, err
		}
		return event, nil
	default:
		p.logger.Debug("skipping encrypted event with unknown algorithm",
			"algorithm", algorithm,
			"payload", digest.LogValue(payload),
		)
		return nil, nil
	}
}
