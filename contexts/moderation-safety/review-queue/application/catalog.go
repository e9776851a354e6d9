package application

import (
	"context"

	"triage/contexts/moderation-safety/review-queue/domain/entities"
)

// PerformRequest carries everything a type handler needs to execute one
// action. TargetFound distinguishes a deleted target from a zero projection.
type PerformRequest struct {
	Reviewable  entities.Reviewable
	Target      entities.Target
	TargetFound bool
	Actor       entities.Actor
	ActionID    string
	Args        map[string]string
}

// HandlerResult is what a type handler reports back to the transition engine.
type HandlerResult struct {
	Outcome          entities.ReviewOutcome
	RecalculateScore bool
}

// TypeHandler contributes the type-specific behavior of one reviewable kind:
// which actions exist for a given state, how each action executes, and which
// payload fields stay editable.
type TypeHandler interface {
	Type() entities.ReviewableType
	BuildActions(reviewable entities.Reviewable, target entities.Target, targetFound bool, actor entities.Actor) entities.ActionSet
	Perform(ctx context.Context, req PerformRequest) (HandlerResult, error)
	EditableFields(status entities.ReviewableStatus) []string
}

// Catalog is the registry of type handlers, keyed by type tag. It computes
// action sets deterministically from (status, target state, capability).
type Catalog struct {
	handlers map[entities.ReviewableType]TypeHandler
	order    []entities.ReviewableType
}

func NewCatalog(handlers ...TypeHandler) *Catalog {
	catalog := &Catalog{handlers: make(map[entities.ReviewableType]TypeHandler, len(handlers))}
	for _, handler := range handlers {
		if _, exists := catalog.handlers[handler.Type()]; exists {
			continue
		}
		catalog.handlers[handler.Type()] = handler
		catalog.order = append(catalog.order, handler.Type())
	}
	return catalog
}

func (c *Catalog) HandlerFor(reviewableType entities.ReviewableType) (TypeHandler, bool) {
	handler, ok := c.handlers[reviewableType]
	return handler, ok
}

func (c *Catalog) KnownType(reviewableType entities.ReviewableType) bool {
	_, ok := c.handlers[reviewableType]
	return ok
}

func (c *Catalog) KnownTypes() []entities.ReviewableType {
	return append([]entities.ReviewableType(nil), c.order...)
}

// ActionsFor returns the permitted actions for the reviewable in its current
// state. Non-pending status, a missing target, or an unregistered type all
// yield the empty set.
func (c *Catalog) ActionsFor(
	reviewable entities.Reviewable,
	target entities.Target,
	targetFound bool,
	actor entities.Actor,
) entities.ActionSet {
	if !reviewable.Pending() || !targetFound {
		return entities.ActionSet{}
	}
	handler, ok := c.handlers[reviewable.Type]
	if !ok {
		return entities.ActionSet{}
	}
	return handler.BuildActions(reviewable, target, targetFound, actor)
}
