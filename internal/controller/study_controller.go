package controller

import (
	"studymate-be/internal/pkg/serverutils"
	"studymate-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IStudyController interface {
	RegisterRoutes(r fiber.Router)
	Summary(ctx *fiber.Ctx) error
	Flashcards(ctx *fiber.Ctx) error
	Quiz(ctx *fiber.Ctx) error
}

type studyController struct {
	studyService service.IStudyService
}

func NewStudyController(studyService service.IStudyService) IStudyController {
	return &studyController{
		studyService: studyService,
	}
}

func (c *studyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/study")
	h.Get("summary", c.Summary)
	h.Get("flashcards", c.Flashcards)
	h.Get("quiz", c.Quiz)
}

func (c *studyController) Summary(ctx *fiber.Ctx) error {
	res, err := c.studyService.Summary(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate summary", res))
}

func (c *studyController) Flashcards(ctx *fiber.Ctx) error {
	res, err := c.studyService.Flashcards(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate flashcards", res))
}

func (c *studyController) Quiz(ctx *fiber.Ctx) error {
	res, err := c.studyService.Quiz(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate quiz", res))
}
