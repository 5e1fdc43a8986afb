package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/middleware"
	"github.com/chalkcast/appserver/internal/services"
)

type AssetHandler struct {
	lectures services.LectureService
	assets   services.AssetService
}

func NewAssetHandler(lectures services.LectureService, assets services.AssetService) *AssetHandler {
	return &AssetHandler{lectures: lectures, assets: assets}
}

func readFormFile(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	return data, fh.Header.Get("Content-Type"), nil
}

// POST /lecture/picture (multipart)
// fields: "name"; files: "picture", "thumbnail"
func (ah *AssetHandler) UploadPicture(c *gin.Context) {
	name := c.PostForm("name")
	picture, declaredMime, err := readFormFile(c, "picture")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "picture file"}})
		return
	}
	thumbnail, _, err := readFormFile(c, "thumbnail")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "thumbnail file"}})
		return
	}

	ctx := c.Request.Context()
	asset, err := ah.assets.IngestPicture(ctx, name, picture, thumbnail, declaredMime)
	if err != nil {
		respondError(c, err)
		return
	}
	claims := middleware.Claims(c)
	if err := ah.lectures.AddPicture(ctx, claims.Course.LectureUUID, asset); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sha": asset.Sha.Hex(), "tsha": asset.ThumbSha.Hex()})
}

// POST /lecture/ipynb (multipart)
// fields: "id", "name", optional "note", "presentDownload", "applets"
// (JSON array); file: "file"
func (ah *AssetHandler) UploadNotebook(c *gin.Context) {
	data, declaredMime, err := readFormFile(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "notebook file"}})
		return
	}
	if declaredMime == "" {
		declaredMime = "application/x-ipynb+json"
	}

	ctx := c.Request.Context()
	res, err := ah.assets.Ingest(ctx, data, declaredMime, []string{"application/x-ipynb+json"}, services.MaxUploadSize)
	if err != nil {
		respondError(c, err)
		return
	}

	fh, _ := c.FormFile("file")
	payload := services.NotebookPayload{
		ID:       c.PostForm("id"),
		Name:     c.PostForm("name"),
		Sha:      res.Sha,
		MimeType: res.MimeType,
		Filename: fh.Filename,
	}
	if v, ok := c.GetPostForm("note"); ok {
		payload.Note = &v
	}
	if v, ok := c.GetPostForm("presentDownload"); ok {
		payload.PresentDownload = &v
	}
	if raw := c.PostForm("applets"); raw != "" {
		var applets []struct {
			AppID             string `json:"appid"`
			AppName           string `json:"appname"`
			PresentToStudents *bool  `json:"presentToStudents"`
		}
		if err := json.Unmarshal([]byte(raw), &applets); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "applets"}})
			return
		}
		for _, a := range applets {
			payload.Applets = append(payload.Applets, services.AppletPayload{
				AppID:             a.AppID,
				AppName:           a.AppName,
				PresentToStudents: a.PresentToStudents,
			})
		}
	}

	claims := middleware.Claims(c)
	replaced, err := ah.lectures.UpsertNotebook(ctx, claims.Course.LectureUUID, payload)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"sha": res.Sha.Hex()}
	if replaced != nil {
		resp["replaced"] = replaced.Hex()
	}
	c.JSON(http.StatusOK, resp)
}

type notebookMetaEntry struct {
	ID              string          `json:"id"`
	Name            *string         `json:"name"`
	PresentDownload *string         `json:"presentDownload"`
	Note            *string         `json:"note"`
	Applets         map[string]bool `json:"applets"`
}

// PATCH /lecture/ipynb
// body: { "ipynb": {...} } or { "removeipynb": "id" } — never both.
func (ah *AssetHandler) PatchNotebook(c *gin.Context) {
	var req struct {
		Notebook       *notebookMetaEntry `json:"ipynb"`
		RemoveNotebook string             `json:"removeipynb"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "notebook patch"}})
		return
	}
	if (req.Notebook != nil) == (req.RemoveNotebook != "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "exactly one of ipynb and removeipynb"}})
		return
	}
	claims := middleware.Claims(c)
	ctx := c.Request.Context()

	if req.RemoveNotebook != "" {
		removed, err := ah.lectures.RemoveNotebook(ctx, claims.Course.LectureUUID, req.RemoveNotebook)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := gin.H{"ok": true}
		if removed != nil {
			resp["removed"] = removed.Hex()
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	patch := services.NotebookMetaPatch{
		ID:              req.Notebook.ID,
		Name:            req.Notebook.Name,
		PresentDownload: req.Notebook.PresentDownload,
		Note:            req.Notebook.Note,
		AppletsVisible:  req.Notebook.Applets,
	}
	if err := ah.lectures.PatchNotebookMeta(ctx, claims.Course.LectureUUID, patch); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// POST /lecture/bgpdf (multipart)
// fields: "name"; file: "pdf"
func (ah *AssetHandler) UploadBackground(c *gin.Context) {
	name := c.PostForm("name")
	data, declaredMime, err := readFormFile(c, "pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "pdf file"}})
		return
	}
	if declaredMime == "" {
		declaredMime = "application/pdf"
	}

	ctx := c.Request.Context()
	res, err := ah.assets.Ingest(ctx, data, declaredMime, []string{"application/pdf"}, services.MaxUploadSize)
	if err != nil {
		respondError(c, err)
		return
	}
	claims := middleware.Claims(c)
	if err := ah.lectures.SetBackgroundDocument(ctx, claims.Course.LectureUUID, name, res.Sha); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sha": res.Sha.Hex()})
}

// DELETE /lecture/bgpdf
func (ah *AssetHandler) ResetBackground(c *gin.Context) {
	claims := middleware.Claims(c)
	if err := ah.lectures.ResetBackgroundDocument(c.Request.Context(), claims.Course.LectureUUID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
