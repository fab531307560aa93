package server

import (
	"novella/internal/playback"
	"novella/internal/presentation"
)

// Frame is the response to every session request.
type Frame struct {
	Session      string                 `json:"session"`
	Title        string                 `json:"title"`
	State        playback.State         `json:"state"`
	Scene        string                 `json:"scene"`
	Index        int                    `json:"index"`
	Affection    map[string]int         `json:"affection"`
	Choices      []string               `json:"choices"`
	Stage        []playback.Slot        `json:"stage"`
	RestartArmed bool                   `json:"restart_armed"`
	Status       string                 `json:"status,omitempty"`
	Diagnostics  []playback.Diagnostic  `json:"diagnostics,omitempty"`
	Commands     []presentation.Command `json:"commands"`
}

// ChooseRequest is the body of POST /api/sessions/{id}/choose.
type ChooseRequest struct {
	Index *int `json:"index"`
}

// SlotRequest is the optional body of save and load requests.
type SlotRequest struct {
	Slot string `json:"slot"`
}

func (e *entry) frame(commands []presentation.Command) Frame {
	pos := e.session.Position()
	if commands == nil {
		commands = []presentation.Command{}
	}
	return Frame{
		Session:      e.id,
		Title:        e.title,
		State:        e.session.State(),
		Scene:        pos.Scene,
		Index:        pos.Index,
		Affection:    e.session.Affection(),
		Choices:      e.session.Choices(),
		Stage:        e.session.Stage(),
		RestartArmed: e.session.RestartArmed(),
		Status:       e.session.Status(),
		Diagnostics:  e.session.Diagnostics(),
		Commands:     commands,
	}
}
