package handlers

import (
	"context"
	"errors"
	"os"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vodarr/vodarr/internal/asset"
	"github.com/vodarr/vodarr/internal/cleanup"
	"github.com/vodarr/vodarr/internal/engine"
)

// AssetHandler handles transcoded-asset endpoints.
type AssetHandler struct {
	root   string
	engine *engine.Engine
}

// NewAssetHandler creates a new asset handler over the transcoded root.
func NewAssetHandler(root string, eng *engine.Engine) *AssetHandler {
	return &AssetHandler{
		root:   root,
		engine: eng,
	}
}

// Register registers the asset routes with the API.
func (h *AssetHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listAssets",
		Method:      "GET",
		Path:        "/api/v1/assets",
		Summary:     "List transcoded assets",
		Description: "Returns every asset directory under the transcoded root",
		Tags:        []string{"Assets"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "deleteAsset",
		Method:      "DELETE",
		Path:        "/api/v1/assets",
		Summary:     "Delete transcoded asset",
		Description: "Removes one asset directory identified by its root-relative path",
		Tags:        []string{"Assets"},
	}, h.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "cleanupIncompleteAssets",
		Method:      "POST",
		Path:        "/api/v1/assets/cleanup",
		Summary:     "Clean up incomplete assets",
		Description: "Removes asset directories that are locked, unfinished or below the promotion threshold",
		Tags:        []string{"Assets"},
	}, h.Cleanup)
}

// ListAssetsInput is the input for listing assets.
type ListAssetsInput struct{}

// ListAssetsOutput is the output for listing assets.
type ListAssetsOutput struct {
	Body struct {
		Assets []asset.Info `json:"assets"`
	}
}

// List returns every asset directory.
func (h *AssetHandler) List(ctx context.Context, input *ListAssetsInput) (*ListAssetsOutput, error) {
	assets, err := asset.List(h.root)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list assets", err)
	}
	resp := &ListAssetsOutput{}
	resp.Body.Assets = assets
	if resp.Body.Assets == nil {
		resp.Body.Assets = []asset.Info{}
	}
	return resp, nil
}

// DeleteAssetInput identifies one asset by root-relative path.
type DeleteAssetInput struct {
	Path string `query:"path" minLength:"1" doc:"Root-relative asset path, e.g. series/Show_S01E01"`
}

// Delete removes one asset directory.
func (h *AssetHandler) Delete(ctx context.Context, input *DeleteAssetInput) (*AcceptedOutput, error) {
	err := asset.Delete(h.root, input.Path)
	switch {
	case err == nil:
		return accepted(true), nil
	case errors.Is(err, asset.ErrOutsideRoot):
		return nil, huma.Error400BadRequest("invalid asset path", err)
	case os.IsNotExist(err):
		return nil, huma.Error404NotFound("asset not found")
	default:
		return nil, huma.Error500InternalServerError("failed to delete asset", err)
	}
}

// CleanupInput is the input for the cleanup operation.
type CleanupInput struct{}

// CleanupOutput is the output for the cleanup operation.
type CleanupOutput struct {
	Body cleanup.Result
}

// Cleanup removes incomplete asset directories.
func (h *AssetHandler) Cleanup(ctx context.Context, input *CleanupInput) (*CleanupOutput, error) {
	result, err := h.engine.CleanupIncomplete()
	if err != nil {
		return nil, huma.Error500InternalServerError("cleanup failed", err)
	}
	return &CleanupOutput{Body: *result}, nil
}
