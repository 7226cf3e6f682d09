package combatserver

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/fieldops/internal/game/combat"
)

// StartRequest is the payload of StartSession.
type StartRequest struct {
	MissionID    string                   `json:"mission_id"`
	Participants []combat.ParticipantSpec `json:"participants"`
	Enemies      []combat.EnemySpec       `json:"enemies"`
	Context      combat.MissionContext    `json:"context"`
}

// WatchKind tags a WatchSession message.
type WatchKind string

const (
	WatchSnapshot WatchKind = "snapshot"
	WatchResult   WatchKind = "result"
)

// WatchMessage is one WatchSession stream element: a snapshot while the
// session runs, then exactly one result.
type WatchMessage struct {
	Kind    WatchKind       `json:"kind"`
	Session *combat.Session `json:"session,omitempty"`
	Result  *combat.Result  `json:"result,omitempty"`
}

// toStruct converts v to a Struct through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("converting %T to struct: %w", v, err)
	}
	return s, nil
}

// fromStruct decodes s into the value pointed to by v.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("converting struct: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}
