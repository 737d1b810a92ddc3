// Package web provides the HTTP handlers of the document workflow API.
package web

import (
	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/workflow"
)

// CreateDocumentRequest is the payload for creating a document under an
// entity workflow.
type CreateDocumentRequest struct {
	ID    string         `json:"id"    validate:"required"`
	Attrs map[string]any `json:"attrs"`
}

// TransitionRequest is the payload for executing a transition.
type TransitionRequest struct {
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields"`
}

// TransitionInfo describes one edge of a workflow.
type TransitionInfo struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// StateInfo describes one state of a workflow.
type StateInfo struct {
	Name        string           `json:"name"`
	Value       string           `json:"value"`
	Title       string           `json:"title,omitempty"`
	Transitions []TransitionInfo `json:"transitions"`
}

// EntityResponse describes a registered workflow definition.
type EntityResponse struct {
	Entity       string      `json:"entity"`
	InitialState string      `json:"initial_state"`
	States       []StateInfo `json:"states"`
}

// DocumentResponse is the API view of a document bound to an actor.
type DocumentResponse struct {
	ID          string                  `json:"id"`
	Entity      string                  `json:"entity"`
	State       string                  `json:"state"`
	History     []workflow.HistoryEntry `json:"history"`
	Transitions []TransitionInfo        `json:"transitions"`
	Permissions []string                `json:"permissions"`
	Attrs       map[string]any          `json:"attrs"`
}

func entityResponse(def *workflow.Definition) EntityResponse {
	states := make([]StateInfo, 0, len(def.States()))

	for _, s := range def.States() {
		transitions := make([]TransitionInfo, 0, len(s.Transitions()))
		for _, t := range s.Transitions() {
			transitions = append(transitions, TransitionInfo{Name: t.Name(), From: t.From(), To: t.To()})
		}

		states = append(states, StateInfo{
			Name:        s.Name(),
			Value:       s.Value(),
			Title:       s.Title(),
			Transitions: transitions,
		})
	}

	return EntityResponse{
		Entity:       def.Entity(),
		InitialState: def.InitialState().Value(),
		States:       states,
	}
}

func documentResponse(wf *workflow.Workflow) DocumentResponse {
	transitions := make([]TransitionInfo, 0)
	for _, t := range wf.Transitions() {
		transitions = append(transitions, TransitionInfo{Name: t.Name(), From: t.From(), To: t.To()})
	}

	resp := DocumentResponse{
		Entity:      wf.Definition().Entity(),
		State:       wf.StateValue(),
		History:     wf.History(),
		Transitions: transitions,
		Permissions: wf.Permissions(),
	}

	doc := wf.Document()
	if snapshot := document.SnapshotOf(doc); snapshot != nil {
		resp.Attrs = snapshot
	}

	resp.ID = document.GUIDOf(doc)

	return resp
}
