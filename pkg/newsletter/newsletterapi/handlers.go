// Package newsletterapi exposes newsletter sends over HTTP:
//
//	POST /api/v1/newsletters/sends                      submit a send (202)
//	GET  /api/v1/newsletters/sends/:groupUUID           progress checkpoint
//	GET  /api/v1/newsletters/sends/:groupUUID/report    final result
//	GET  /api/v1/newsletters/sends/:groupUUID/batches   archived batch reports
//	GET  /api/v1/newsletters/unsubscribe/verify?token=  verify an unsubscribe token
//	GET  /api/v1/jobs/:id                               job host status
package newsletterapi

import (
	"context"

	"github.com/Abraxas-365/mailflow/pkg/jobx"
	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/Abraxas-365/mailflow/pkg/newsletter"
	"github.com/Abraxas-365/mailflow/pkg/newsletter/newslettersrv"
	"github.com/gofiber/fiber/v2"
)

// SendService is what the handlers need from newslettersrv.Service.
type SendService interface {
	Submit(ctx context.Context, req newsletter.SendRequest) (*newslettersrv.SubmitResult, error)
	Progress(ctx context.Context, group kernel.GroupID) (*newsletter.Progress, error)
	Report(ctx context.Context, group kernel.GroupID) (*newsletter.WorkflowResult, error)
	Batches(ctx context.Context, group kernel.GroupID) ([]newsletter.BatchResult, error)
	Job(ctx context.Context, id string) (*jobx.JobInfo, error)
	VerifyUnsubscribe(token string) (*newsletter.UnsubscribeClaims, error)
}

type Handlers struct {
	service SendService
}

func NewHandlers(service SendService) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the routes. auth guards everything except the
// unsubscribe verification, which is authenticated by its own token.
func (h *Handlers) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	v1 := router.Group("/api/v1")

	v1.Get("/newsletters/unsubscribe/verify", h.verifyUnsubscribe)

	sends := v1.Group("/newsletters/sends", auth)
	sends.Post("/", h.submit)
	sends.Get("/:groupUUID", h.progress)
	sends.Get("/:groupUUID/report", h.report)
	sends.Get("/:groupUUID/batches", h.batches)

	v1.Get("/jobs/:id", auth, h.job)
}

func (h *Handlers) submit(c *fiber.Ctx) error {
	var req newsletter.SendRequest
	if err := c.BodyParser(&req); err != nil {
		return newsletter.Errors().NewWithCause(newsletter.ErrInvalidRequest, err).
			WithDetail("field", "body")
	}

	ctx := kernel.WithTenant(requestContext(c), req.TenantID)
	res, err := h.service.Submit(ctx, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(res)
}

func (h *Handlers) progress(c *fiber.Ctx) error {
	prog, err := h.service.Progress(requestContext(c), groupParam(c))
	if err != nil {
		return err
	}
	return c.JSON(prog)
}

func (h *Handlers) report(c *fiber.Ctx) error {
	res, err := h.service.Report(requestContext(c), groupParam(c))
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *Handlers) batches(c *fiber.Ctx) error {
	res, err := h.service.Batches(requestContext(c), groupParam(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"batches": res})
}

func (h *Handlers) job(c *fiber.Ctx) error {
	info, err := h.service.Job(requestContext(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (h *Handlers) verifyUnsubscribe(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return newsletter.Errors().NewWithMessage(newsletter.ErrInvalidRequest, "Invalid newsletter send request: token is required").
			WithDetail("field", "token")
	}
	claims, err := h.service.VerifyUnsubscribe(token)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"valid":        true,
		"newsletterId": claims.NewsletterID,
		"tenantId":     claims.TenantID,
		"recipientId":  claims.Subject,
	})
}

func groupParam(c *fiber.Ctx) kernel.GroupID {
	return kernel.NewGroupID(c.Params("groupUUID"))
}

// requestContext carries the request ID set by the requestid middleware.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		ctx = kernel.WithRequestID(ctx, id)
	}
	return ctx
}
