// Package store 提供层级定义与运行记录的持久化层，基于 GORM。
// 生产环境使用 SQLite 文件库，测试使用内存库。
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/BaSui01/teamflow/types"
)

// Store 封装数据库访问。所有方法并发安全（由 *gorm.DB 保证）。
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open 打开 SQLite 数据库并迁移表结构。dsn 形如 "teamflow.db" 或 ":memory:"。
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.AutoMigrate(
		&HierarchyRecord{},
		&TeamRecord{},
		&WorkerRecord{},
		&RunRecord{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "store")),
	}, nil
}

// NewStore 从已有连接创建 Store，供测试复用连接。
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "store"))}
}

// DB 暴露底层连接。
func (s *Store) DB() *gorm.DB { return s.db }

// CreateHierarchy 写入层级定义及其团队、成员。ID 为空时自动生成。
// 名称重复返回 conflict 错误。
func (s *Store) CreateHierarchy(ctx context.Context, spec types.HierarchySpec) (*HierarchyRecord, error) {
	record := recordFromSpec(spec)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&HierarchyRecord{}).Where("name = ?", record.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.NewError(types.ErrConflict, fmt.Sprintf("hierarchy name already exists: %s", record.Name))
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("hierarchy created",
		zap.String("id", record.ID),
		zap.String("name", record.Name),
		zap.Int("teams", len(record.Teams)))
	return record, nil
}

// GetHierarchy 按 ID 读取层级定义，预加载团队与成员并保持声明顺序。
func (s *Store) GetHierarchy(ctx context.Context, id string) (*HierarchyRecord, error) {
	var record HierarchyRecord
	err := s.db.WithContext(ctx).
		Preload("Teams", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Teams.Workers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("hierarchy not found: %s", id))
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListHierarchies 分页列出层级定义（不含团队详情），按创建时间倒序。
func (s *Store) ListHierarchies(ctx context.Context, offset, limit int) ([]HierarchyRecord, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&HierarchyRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []HierarchyRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// UpdateHierarchy 整体替换层级定义：删除旧的团队/成员，写入新的。
func (s *Store) UpdateHierarchy(ctx context.Context, id string, spec types.HierarchySpec) (*HierarchyRecord, error) {
	spec.ID = id
	record := recordFromSpec(spec)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing HierarchyRecord
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewError(types.ErrNotFound, fmt.Sprintf("hierarchy not found: %s", id))
			}
			return err
		}

		var count int64
		if err := tx.Model(&HierarchyRecord{}).
			Where("name = ? AND id <> ?", record.Name, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.NewError(types.ErrConflict, fmt.Sprintf("hierarchy name already exists: %s", record.Name))
		}

		if err := deleteHierarchyChildren(tx, id); err != nil {
			return err
		}
		record.CreatedAt = existing.CreatedAt
		return tx.Save(record).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("hierarchy updated", zap.String("id", id))
	return record, nil
}

// DeleteHierarchy 删除层级定义及其团队、成员。运行记录保留。
func (s *Store) DeleteHierarchy(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing HierarchyRecord
		if err := tx.First(&existing, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NewError(types.ErrNotFound, fmt.Sprintf("hierarchy not found: %s", id))
			}
			return err
		}
		if err := deleteHierarchyChildren(tx, id); err != nil {
			return err
		}
		return tx.Delete(&HierarchyRecord{}, "id = ?", id).Error
	})
}

// CreateRun 写入新的运行记录。
func (s *Store) CreateRun(ctx context.Context, record *RunRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(record).Error
}

// GetRun 按 ID 读取运行记录。
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	var record RunRecord
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrRunNotFound, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRuns 分页列出运行记录，可按层级 ID 过滤，按创建时间倒序。
func (s *Store) ListRuns(ctx context.Context, hierarchyID string, offset, limit int) ([]RunRecord, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).Model(&RunRecord{})
	if hierarchyID != "" {
		query = query.Where("hierarchy_id = ?", hierarchyID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []RunRecord
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&records).Error
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// UpdateRun 更新运行记录的状态字段。
func (s *Store) UpdateRun(ctx context.Context, record *RunRecord) error {
	return s.db.WithContext(ctx).Save(record).Error
}

func deleteHierarchyChildren(tx *gorm.DB, hierarchyID string) error {
	if err := tx.Where("team_id IN (?)",
		tx.Model(&TeamRecord{}).Select("id").Where("hierarchy_id = ?", hierarchyID),
	).Delete(&WorkerRecord{}).Error; err != nil {
		return err
	}
	return tx.Where("hierarchy_id = ?", hierarchyID).Delete(&TeamRecord{}).Error
}

func recordFromSpec(spec types.HierarchySpec) *HierarchyRecord {
	now := time.Now().UTC()
	record := &HierarchyRecord{
		ID:                   spec.ID,
		Name:                 spec.Name,
		Description:          spec.Description,
		RootPrompt:           spec.RootPrompt,
		Model:                spec.Model,
		EnableContextSharing: spec.EnableContextSharing,
		ParallelExecution:    spec.ParallelExecution,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	for i, team := range spec.Teams {
		teamRecord := TeamRecord{
			ID:               team.ID,
			HierarchyID:      record.ID,
			Name:             team.Name,
			SupervisorPrompt: team.SupervisorPrompt,
			Model:            team.Model,
			Position:         i,
			PreventDuplicate: team.PreventDuplicate,
			ShareContext:     team.ShareContext,
		}
		if teamRecord.ID == "" {
			teamRecord.ID = uuid.NewString()
		}
		for j, worker := range team.Workers {
			workerRecord := WorkerRecord{
				ID:           worker.ID,
				TeamID:       teamRecord.ID,
				Name:         worker.Name,
				Role:         worker.Role,
				SystemPrompt: worker.SystemPrompt,
				Tools:        encodeTools(worker.Tools),
				Model:        worker.Model,
				Temperature:  worker.Temperature,
				MaxTokens:    worker.MaxTokens,
				Position:     j,
			}
			if workerRecord.ID == "" {
				workerRecord.ID = uuid.NewString()
			}
			teamRecord.Workers = append(teamRecord.Workers, workerRecord)
		}
		record.Teams = append(record.Teams, teamRecord)
	}
	return record
}

func encodeTools(tools []string) string {
	if len(tools) == 0 {
		return ""
	}
	data, err := json.Marshal(tools)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeTools(encoded string) []string {
	if encoded == "" {
		return nil
	}
	var tools []string
	if err := json.Unmarshal([]byte(encoded), &tools); err != nil {
		return nil
	}
	return tools
}
