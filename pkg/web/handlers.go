package web

import (
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/BriefyHQ/docflow/pkg/document"
	"github.com/BriefyHQ/docflow/pkg/events"
	"github.com/BriefyHQ/docflow/pkg/otelhelper"
	"github.com/BriefyHQ/docflow/pkg/persistence"
	"github.com/BriefyHQ/docflow/pkg/registry"
	"github.com/BriefyHQ/docflow/pkg/workflow"
)

// Actor headers: the caller is authenticated upstream; the gateway forwards
// identity and groups.
const (
	ActorIDHeader     = "X-Actor-Id"
	ActorGroupsHeader = "X-Actor-Groups"
	RequestIDHeader   = "X-Request-Id"
)

type APIHandlers struct {
	registry *registry.Registry
	store    persistence.Store
	emitter  *events.Emitter
	validate *validator.Validate
	tracer   trace.Tracer
	logger   *slog.Logger
}

func NewAPIHandlers(
	reg *registry.Registry,
	store persistence.Store,
	emitter *events.Emitter,
	validate *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		registry: reg,
		store:    store,
		emitter:  emitter,
		validate: validate,
		tracer:   noop.NewTracerProvider().Tracer("docflow"),
		logger:   logger,
	}
}

// WithTracer enables span creation around transition execution.
func (h *APIHandlers) WithTracer(tracer trace.Tracer) *APIHandlers {
	h.tracer = tracer

	return h
}

// GetEntities lists the registered entity types.
func (h *APIHandlers) GetEntities(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"entities": h.registry.Entities()})
}

// GetEntity returns the states and transitions of an entity workflow.
func (h *APIHandlers) GetEntity(c fiber.Ctx) error {
	def, err := h.registry.Definition(c.Params("entity"))
	if err != nil {
		return notFound(c, err.Error())
	}

	return c.JSON(entityResponse(def))
}

// CreateDocument creates a document under an entity workflow. The acting
// user becomes the document creator and the workflow initializes the state
// and first history entry.
func (h *APIHandlers) CreateDocument(c fiber.Ctx) error {
	def, err := h.registry.Definition(c.Params("entity"))
	if err != nil {
		return notFound(c, err.Error())
	}

	var req CreateDocumentRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(c, "Invalid request body: "+err.Error())
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	actor := h.actor(c)

	doc := document.NewMapDocument(req.ID, req.Attrs)
	doc.SetRequestID(c.Get(RequestIDHeader))

	if actor != nil {
		if _, ok := doc.Get(def.CreatorAttrName()); !ok {
			_ = doc.Set(def.CreatorAttrName(), actor.ID)
		}
	}

	wf, err := workflow.New(def, doc, actor, workflow.WithEmitter(h.emitter))
	if err != nil {
		return handleWorkflowError(c, err)
	}

	if err := h.store.SaveDocument(c.Context(), doc); err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(documentResponse(wf))
}

// GetDocument returns a document together with the transitions the calling
// actor may perform on it.
func (h *APIHandlers) GetDocument(c fiber.Ctx) error {
	wf, err := h.load(c)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(documentResponse(wf))
}

// PostTransition executes a named transition on a document.
func (h *APIHandlers) PostTransition(c fiber.Ctx) error {
	name := c.Params("transition")

	ctx, span := otelhelper.StartSpan(c.Context(), h.tracer, "workflow.transition",
		attribute.String(otelhelper.EntityKey, c.Params("entity")),
		attribute.String(otelhelper.DocumentKey, c.Params("id")),
		attribute.String(otelhelper.TransitionKey, name),
	)
	defer span.End()

	wf, err := h.load(c)
	if err != nil {
		otelhelper.SetError(span, err)

		return handleWorkflowError(c, err)
	}

	var req TransitionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().Body(&req); err != nil {
			return badRequest(c, "Invalid request body: "+err.Error())
		}
	}

	span.SetAttributes(attribute.String(otelhelper.StateFromKey, wf.StateValue()))

	err = wf.Transition(ctx, name,
		workflow.WithMessage(req.Message),
		workflow.WithFields(req.Fields),
	)
	if err != nil {
		otelhelper.SetError(span, err)

		return handleWorkflowError(c, err)
	}

	span.SetAttributes(attribute.String(otelhelper.StateToKey, wf.StateValue()))

	if err := h.store.SaveDocument(ctx, wf.Document().(*document.MapDocument)); err != nil {
		otelhelper.SetError(span, err)

		return handleWorkflowError(c, err)
	}

	return c.JSON(documentResponse(wf))
}

// HealthCheck reports store reachability.
func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.store.HealthCheck(c.Context()); err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "healthy"})
}

func (h *APIHandlers) load(c fiber.Ctx) (*workflow.Workflow, error) {
	def, err := h.registry.Definition(c.Params("entity"))
	if err != nil {
		return nil, persistence.NewDocumentError("Load", c.Params("id"), persistence.ErrDocumentNotFound)
	}

	doc, err := h.store.DocumentByID(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}

	doc.SetRequestID(c.Get(RequestIDHeader))

	before := stateOf(doc, def)

	wf, err := workflow.New(def, doc, h.actor(c), workflow.WithEmitter(h.emitter))
	if err != nil {
		return nil, err
	}

	// Constructing the workflow initializes documents that predate it; make
	// the initialization durable.
	if before == "" && wf.StateValue() != "" {
		if err := h.store.SaveDocument(c.Context(), doc); err != nil {
			return nil, err
		}
	}

	return wf, nil
}

func (h *APIHandlers) actor(c fiber.Ctx) *workflow.Actor {
	id := c.Get(ActorIDHeader)
	if id == "" {
		return nil
	}

	actor := &workflow.Actor{ID: id}

	if groups := c.Get(ActorGroupsHeader); groups != "" {
		for _, group := range strings.Split(groups, ",") {
			if group = strings.TrimSpace(group); group != "" {
				actor.Groups = append(actor.Groups, group)
			}
		}
	}

	return actor
}

func stateOf(doc document.Document, def *workflow.Definition) string {
	raw, ok := doc.Get(def.StateAttrName())
	if !ok || raw == nil {
		return ""
	}

	s, _ := raw.(string)

	return s
}
