package controller

import (
	"io"

	"studymate-be/internal/pkg/serverutils"
	"studymate-be/internal/service"
	"studymate-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// Multipart field carrying the uploaded document
const uploadField = "pdf"

type IBookController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Current(ctx *fiber.Ctx) error
	Switch(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
	Reconcile(ctx *fiber.Ctx) error
}

type bookController struct {
	bookService service.IBookService
}

func NewBookController(bookService service.IBookService) IBookController {
	return &bookController{
		bookService: bookService,
	}
}

func (c *bookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/books")
	h.Post("", c.Upload)
	h.Get("", c.List)
	h.Get("current", c.Current)
	h.Post("reconcile", c.Reconcile)
	h.Post(":id/switch", c.Switch)
	h.Post(":id/clear", c.Clear)
	h.Delete(":id", c.Delete)
}

func (c *bookController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile(uploadField)
	if err != nil {
		return apperr.InvalidUpload("no file uploaded in field '" + uploadField + "'")
	}
	if fileHeader.Filename == "" {
		return apperr.InvalidUpload("no file selected")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidUpload, "could not read uploaded file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidUpload, "could not read uploaded file", err)
	}

	res, err := c.bookService.Upload(ctx.UserContext(), serverutils.SessionID(ctx), data, fileHeader.Filename)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success upload book", res))
}

func (c *bookController) List(ctx *fiber.Ctx) error {
	res, err := c.bookService.List(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list books", res))
}

func (c *bookController) Current(ctx *fiber.Ctx) error {
	res, err := c.bookService.Current(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show current book", res))
}

func (c *bookController) Switch(ctx *fiber.Ctx) error {
	res, err := c.bookService.Switch(ctx.UserContext(), serverutils.SessionID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success switch book", res))
}

func (c *bookController) Delete(ctx *fiber.Ctx) error {
	err := c.bookService.Delete(ctx.UserContext(), serverutils.SessionID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete book", nil))
}

func (c *bookController) Clear(ctx *fiber.Ctx) error {
	err := c.bookService.Clear(ctx.UserContext(), serverutils.SessionID(ctx), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success clear chat history", nil))
}

func (c *bookController) Reconcile(ctx *fiber.Ctx) error {
	res, err := c.bookService.Reconcile(ctx.UserContext(), serverutils.SessionID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reconcile books", res))
}
