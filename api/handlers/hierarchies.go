package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/teamflow/hierarchy"
	"github.com/BaSui01/teamflow/store"
	"github.com/BaSui01/teamflow/types"
)

// =============================================================================
// 🏗️ 层级定义 Handler
// =============================================================================

// HierarchyHandler 层级定义管理处理器
type HierarchyHandler struct {
	store  *store.Store
	logger *zap.Logger
}

// NewHierarchyHandler 创建层级定义处理器
func NewHierarchyHandler(st *store.Store, logger *zap.Logger) *HierarchyHandler {
	return &HierarchyHandler{store: st, logger: logger}
}

// WorkerRequest 成员定义请求体
type WorkerRequest struct {
	Name         string   `json:"name"`
	Role         string   `json:"role,omitempty"`
	SystemPrompt string   `json:"system_prompt"`
	Tools        []string `json:"tools,omitempty"`
	Model        string   `json:"model,omitempty"`
	Temperature  float32  `json:"temperature,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
}

// TeamRequest 团队定义请求体
type TeamRequest struct {
	Name             string          `json:"name"`
	SupervisorPrompt string          `json:"supervisor_prompt"`
	Workers          []WorkerRequest `json:"workers"`
	Model            string          `json:"model,omitempty"`
	PreventDuplicate *bool           `json:"prevent_duplicate,omitempty"`
	ShareContext     bool            `json:"share_context,omitempty"`
}

// HierarchyRequest 层级定义请求体
type HierarchyRequest struct {
	Name                 string        `json:"name"`
	Description          string        `json:"description,omitempty"`
	RootPrompt           string        `json:"root_prompt"`
	Teams                []TeamRequest `json:"teams"`
	Model                string        `json:"model,omitempty"`
	EnableContextSharing bool          `json:"enable_context_sharing,omitempty"`
	ParallelExecution    bool          `json:"parallel_execution,omitempty"`
}

// ToSpec 将请求体转换为层级描述，为缺省 ID 生成 UUID。
func (req *HierarchyRequest) ToSpec() types.HierarchySpec {
	spec := types.HierarchySpec{
		Name:                 strings.TrimSpace(req.Name),
		Description:          req.Description,
		RootPrompt:           req.RootPrompt,
		Model:                req.Model,
		EnableContextSharing: req.EnableContextSharing,
		ParallelExecution:    req.ParallelExecution,
		Teams:                make([]types.TeamSpec, 0, len(req.Teams)),
	}
	for _, team := range req.Teams {
		teamSpec := types.TeamSpec{
			ID:               uuid.NewString(),
			Name:             strings.TrimSpace(team.Name),
			SupervisorPrompt: team.SupervisorPrompt,
			Model:            team.Model,
			PreventDuplicate: true,
			ShareContext:     team.ShareContext,
			Workers:          make([]types.WorkerSpec, 0, len(team.Workers)),
		}
		if team.PreventDuplicate != nil {
			teamSpec.PreventDuplicate = *team.PreventDuplicate
		}
		for _, worker := range team.Workers {
			teamSpec.Workers = append(teamSpec.Workers, types.WorkerSpec{
				ID:           uuid.NewString(),
				Name:         strings.TrimSpace(worker.Name),
				Role:         worker.Role,
				SystemPrompt: worker.SystemPrompt,
				Tools:        worker.Tools,
				Model:        worker.Model,
				Temperature:  worker.Temperature,
				MaxTokens:    worker.MaxTokens,
			})
		}
		spec.Teams = append(spec.Teams, teamSpec)
	}
	return spec
}

// =============================================================================
// 🎯 HTTP 处理程序
// =============================================================================

// HandleCreate 创建层级定义
// @Summary 创建层级定义
// @Tags 层级
// @Accept json
// @Produce json
// @Success 201 {object} Response{data=store.HierarchyRecord} "已创建"
// @Failure 400 {object} Response "配置非法"
// @Failure 409 {object} Response "名称已存在"
// @Router /api/v1/hierarchies [post]
func (h *HierarchyHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req HierarchyRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	spec := req.ToSpec()
	if err := hierarchy.ValidateSpec(spec); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	record, err := h.store.CreateHierarchy(r.Context(), spec)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteCreated(w, record)
}

// HandleList 列出层级定义
// @Summary 列出层级定义
// @Tags 层级
// @Produce json
// @Success 200 {object} Response{data=ListResponse} "层级列表"
// @Router /api/v1/hierarchies [get]
func (h *HierarchyHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	offset, limit := ParsePaging(r)
	records, total, err := h.store.ListHierarchies(r.Context(), offset, limit)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, ListResponse{Items: records, Total: total, Offset: offset, Limit: limit})
}

// HandleGet 查询单个层级定义
// @Summary 查询层级定义
// @Tags 层级
// @Produce json
// @Param id path string true "层级 ID"
// @Success 200 {object} Response{data=store.HierarchyRecord} "层级定义"
// @Failure 404 {object} Response "不存在"
// @Router /api/v1/hierarchies/{id} [get]
func (h *HierarchyHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "hierarchy ID is required", h.logger)
		return
	}

	record, err := h.store.GetHierarchy(r.Context(), id)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, record)
}

// HandleUpdate 整体替换层级定义
// @Summary 更新层级定义
// @Tags 层级
// @Accept json
// @Produce json
// @Param id path string true "层级 ID"
// @Success 200 {object} Response{data=store.HierarchyRecord} "已更新"
// @Failure 404 {object} Response "不存在"
// @Router /api/v1/hierarchies/{id} [put]
func (h *HierarchyHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "hierarchy ID is required", h.logger)
		return
	}

	var req HierarchyRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	spec := req.ToSpec()
	spec.ID = id
	if err := hierarchy.ValidateSpec(spec); err != nil {
		WriteError(w, err, h.logger)
		return
	}

	record, err := h.store.UpdateHierarchy(r.Context(), id, spec)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, record)
}

// HandleDelete 删除层级定义
// @Summary 删除层级定义
// @Tags 层级
// @Produce json
// @Param id path string true "层级 ID"
// @Success 200 {object} Response "已删除"
// @Failure 404 {object} Response "不存在"
// @Router /api/v1/hierarchies/{id} [delete]
func (h *HierarchyHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "hierarchy ID is required", h.logger)
		return
	}

	if err := h.store.DeleteHierarchy(r.Context(), id); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, map[string]string{"deleted": id})
}
