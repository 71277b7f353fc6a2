package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/alexkarpov/image-hosting/internal/api/handlers/image"
)

func Setup(h *image.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	images := r.Group("/images")

	images.GET("", h.List)                // list all image ids
	images.POST("", h.Upload)             // upload a new image
	images.GET("/:id", h.GetMeta)         // image metadata by id
	images.GET("/:id/file", h.GetFile)    // image bytes by id
	images.PUT("/:id", h.Modify)          // queue modifications for an image
	images.PUT("/replace/:id", h.Replace) // replace an image in place
	images.DELETE("/:id", h.Delete)       // delete image by id

	return r
}
