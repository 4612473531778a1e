package store

import (
	"time"

	"github.com/BaSui01/teamflow/types"
)

// HierarchyRecord 层级定义的持久化记录。
type HierarchyRecord struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	Name        string `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Description string `gorm:"size:1000" json:"description"`
	RootPrompt  string `gorm:"type:text;not null" json:"root_prompt"`
	Model       string `gorm:"size:100" json:"model"`

	EnableContextSharing bool `gorm:"default:false" json:"enable_context_sharing"`
	ParallelExecution    bool `gorm:"default:false" json:"parallel_execution"`

	Teams []TeamRecord `gorm:"foreignKey:HierarchyID;constraint:OnDelete:CASCADE" json:"teams,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TeamRecord 层级内的团队记录。
type TeamRecord struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	HierarchyID string `gorm:"size:64;not null;index:idx_team_hierarchy" json:"hierarchy_id"`

	Name             string `gorm:"size:200;not null" json:"name"`
	SupervisorPrompt string `gorm:"type:text;not null" json:"supervisor_prompt"`
	Model            string `gorm:"size:100" json:"model"`
	Position         int    `gorm:"default:0" json:"position"` // 保持声明顺序

	PreventDuplicate bool `gorm:"default:true" json:"prevent_duplicate"`
	ShareContext     bool `gorm:"default:false" json:"share_context"`

	Workers []WorkerRecord `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"workers,omitempty"`
}

// WorkerRecord 团队内的成员记录。
type WorkerRecord struct {
	ID     string `gorm:"primaryKey;size:64" json:"id"`
	TeamID string `gorm:"size:64;not null;index:idx_worker_team" json:"team_id"`

	Name         string  `gorm:"size:200;not null" json:"name"`
	Role         string  `gorm:"size:200" json:"role"`
	SystemPrompt string  `gorm:"type:text;not null" json:"system_prompt"`
	Tools        string  `gorm:"type:text" json:"tools"` // JSON 编码的工具引用列表
	Model        string  `gorm:"size:100" json:"model"`
	Temperature  float32 `gorm:"default:0" json:"temperature"`
	MaxTokens    int     `gorm:"default:0" json:"max_tokens"`
	Position     int     `gorm:"default:0" json:"position"`
}

// RunRecord 一次运行的持久化记录。
type RunRecord struct {
	ID          string `gorm:"primaryKey;size:64" json:"id"`
	HierarchyID string `gorm:"size:64;not null;index:idx_run_hierarchy" json:"hierarchy_id"`

	Task   string `gorm:"type:text;not null" json:"task"`
	Status string `gorm:"size:20;not null;index:idx_run_status" json:"status"`
	Result string `gorm:"type:text" json:"result"`
	Error  string `gorm:"type:text" json:"error"`

	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ToSpec 将持久化记录转换为可装配的层级描述。
func (h *HierarchyRecord) ToSpec() types.HierarchySpec {
	spec := types.HierarchySpec{
		ID:                   h.ID,
		Name:                 h.Name,
		Description:          h.Description,
		RootPrompt:           h.RootPrompt,
		Model:                h.Model,
		EnableContextSharing: h.EnableContextSharing,
		ParallelExecution:    h.ParallelExecution,
		Teams:                make([]types.TeamSpec, 0, len(h.Teams)),
	}
	for _, t := range h.Teams {
		spec.Teams = append(spec.Teams, t.ToSpec())
	}
	return spec
}

// ToSpec 将团队记录转换为团队描述。
func (t *TeamRecord) ToSpec() types.TeamSpec {
	spec := types.TeamSpec{
		ID:               t.ID,
		Name:             t.Name,
		SupervisorPrompt: t.SupervisorPrompt,
		Model:            t.Model,
		PreventDuplicate: t.PreventDuplicate,
		ShareContext:     t.ShareContext,
		Workers:          make([]types.WorkerSpec, 0, len(t.Workers)),
	}
	for _, w := range t.Workers {
		spec.Workers = append(spec.Workers, types.WorkerSpec{
			ID:           w.ID,
			Name:         w.Name,
			Role:         w.Role,
			SystemPrompt: w.SystemPrompt,
			Tools:        decodeTools(w.Tools),
			Model:        w.Model,
			Temperature:  w.Temperature,
			MaxTokens:    w.MaxTokens,
		})
	}
	return spec
}
