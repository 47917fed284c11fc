package controller

import (
	"bufio"
	"context"
	"errors"

	"studymate-be/internal/constant"
	"studymate-be/internal/dto"
	"studymate-be/internal/pkg/logger"
	"studymate-be/internal/pkg/serverutils"
	"studymate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Transcript(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat")
	h.Get("", c.Transcript)
	h.Post("", c.Ask)
	h.Post("stream", c.Stream)
}

func (c *chatController) Transcript(ctx *fiber.Ctx) error {
	res, err := c.chatService.GetTranscript(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat history", res))
}

func parseAskRequest(ctx *fiber.Ctx) (*dto.AskRequest, error) {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *chatController) Ask(ctx *fiber.Ctx) error {
	req, err := parseAskRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.chatService.CompleteTurn(ctx.UserContext(), serverutils.SessionID(ctx), ctx.Query("book_id"), req.Question)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success send chat", res))
}

// Stream answers as plain text, flushing every fragment to the client as it is generated.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	req, err := parseAskRequest(ctx)
	if err != nil {
		return err
	}

	sid := serverutils.SessionID(ctx)
	bookID, err := c.chatService.ResolveBook(ctx.UserContext(), sid, ctx.Query("book_id"))
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set("X-Accel-Buffering", "no")

	// The fiber context is recycled once the handler returns; the writer only uses copies.
	question := req.Question
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_, err := c.chatService.StreamTurn(context.Background(), sid, bookID, question, func(fragment string) error {
			if _, err := w.WriteString(fragment); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil && !errors.Is(err, service.ErrStreamAborted) {
			c.logger.Error(constant.ModuleHTTP, "Streaming turn failed", map[string]interface{}{
				"session_id": sid,
				"book_id":    bookID,
				"error":      err,
			})
		}
	})

	return nil
}
