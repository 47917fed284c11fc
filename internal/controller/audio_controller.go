package controller

import (
	"studymate-be/internal/dto"
	"studymate-be/internal/pkg/serverutils"
	"studymate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAudioController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Progress(ctx *fiber.Ctx) error
	Download(ctx *fiber.Ctx) error
}

type audioController struct {
	audioService service.IAudioService
}

func NewAudioController(audioService service.IAudioService) IAudioController {
	return &audioController{
		audioService: audioService,
	}
}

func (c *audioController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/audio")
	h.Post("", c.Start)
	h.Get(":job/progress", c.Progress)
	h.Get(":job", c.Download)
}

func (c *audioController) Start(ctx *fiber.Ctx) error {
	var req dto.StartAudioRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	res, err := c.audioService.StartSynthesis(ctx.UserContext(), serverutils.SessionID(ctx), req.Voice)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Success queue audio summary", res))
}

func (c *audioController) Progress(ctx *fiber.Ctx) error {
	res, err := c.audioService.Progress(ctx.UserContext(), serverutils.SessionID(ctx), ctx.Params("job"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show audio progress", res))
}

func (c *audioController) Download(ctx *fiber.Ctx) error {
	path, err := c.audioService.AudioPath(ctx.UserContext(), serverutils.SessionID(ctx), ctx.Params("job"))
	if err != nil {
		return err
	}

	return ctx.Download(path, "summary.mp3")
}
