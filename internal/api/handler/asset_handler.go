package handler

import (
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/openlearn/lms-api/internal/infrastructure/storage"
)

// AssetHandler serves and uploads static course assets backed by the shared
// object store.
type AssetHandler struct {
	store *storage.AssetStore
}

func NewAssetHandler(store *storage.AssetStore) *AssetHandler {
	return &AssetHandler{store: store}
}

type assetUploadResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Serve handles GET /static/*, streaming the named asset from the store.
//
// @Summary      Serve a static asset
// @Tags         assets
// @Param        name  path  string  true  "Asset name"
// @Success      200  {file}    file
// @Failure      404  {object}  map[string]string
// @Router       /static/{name} [get]
func (h *AssetHandler) Serve(c echo.Context) error {
	name := strings.TrimPrefix(c.Param("*"), "/")
	if name == "" || strings.Contains(name, "..") {
		return echo.NewHTTPError(http.StatusNotFound, "asset not found")
	}

	ok, err := h.store.Exists(c.Request().Context(), name)
	if err != nil {
		return err
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "asset not found")
	}

	obj, err := h.store.Open(c.Request().Context(), name)
	if err != nil {
		return err
	}
	defer obj.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, contentType, obj)
}

// Upload handles POST /api/assets/v0/, storing a multipart file under its
// filename and returning the public URL. Staff only.
//
// @Summary      Upload a static asset
// @Tags         assets
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Asset file"
// @Success      201  {object}  assetUploadResponse
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /api/assets/v0/ [post]
func (h *AssetHandler) Upload(c echo.Context) error {
	if _, _, err := ctxIdentity(c); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is unreadable")
	}
	defer src.Close()

	contentType := fh.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}

	url, err := h.store.Save(c.Request().Context(), fh.Filename, src, fh.Size, contentType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, assetUploadResponse{Name: fh.Filename, URL: url})
}
