// Package adapter 在领域记录（角色卡、地点设定等）与通用实体之间转换，并校验实体内容。
// 注册表本身从不解释 Metadata，这里是唯一理解其键含义的地方。
package adapter

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"z-novel-lore-api/internal/domain/entity"
	apperrors "z-novel-lore-api/pkg/errors"
)

// FieldIssue 字段级校验问题
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult 校验结果；内容问题以数据返回，不作为错误抛出
type ValidationResult struct {
	IsValid  bool         `json:"is_valid"`
	Errors   []FieldIssue `json:"errors"`
	Warnings []FieldIssue `json:"warnings"`
}

// NewValidationResult 创建空的合法结果
func NewValidationResult() ValidationResult {
	return ValidationResult{IsValid: true, Errors: []FieldIssue{}, Warnings: []FieldIssue{}}
}

// AddError 记录错误并标记为不合法
func (r *ValidationResult) AddError(field, format string, args ...any) {
	r.Errors = append(r.Errors, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
	r.IsValid = false
}

// AddWarning 记录警告
func (r *ValidationResult) AddWarning(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge 合并另一结果
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.IsValid = r.IsValid && other.IsValid
}

// Err 不合法时转换为 ErrValidationFailed，供需要拒绝写入的调用方使用
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	parts := make([]string, 0, len(r.Errors))
	for _, fe := range r.Errors {
		parts = append(parts, fe.Field+": "+fe.Message)
	}
	return apperrors.ErrValidationFailed.WithDetail(strings.Join(parts, "; "))
}

// Adapter 领域对象与实体之间的转换契约
type Adapter[T any] interface {
	EntityType() entity.EntityType
	ToEntity(obj T) (*entity.Entity, error)
	FromEntity(e *entity.Entity) (T, error)
	Validate(e *entity.Entity) ValidationResult
}

// typeValidators 按实体类型分派的额外校验
var typeValidators = map[entity.EntityType]func(*entity.Entity) ValidationResult{
	entity.EntityTypeCharacter: CharacterAdapter{}.Validate,
	entity.EntityTypeLocation:  LocationAdapter{}.Validate,
}

// ValidateEntity 通用校验加按类型分派的校验
func ValidateEntity(e *entity.Entity) ValidationResult {
	res := NewValidationResult()
	if e == nil {
		res.AddError("entity", "is required")
		return res
	}
	res.Merge(validateCommon(e))
	if v, ok := typeValidators[e.Type]; ok {
		res.Merge(v(e))
	}
	return res
}

func validateCommon(e *entity.Entity) ValidationResult {
	res := NewValidationResult()
	if strings.TrimSpace(e.Name) == "" {
		res.AddError("name", "must not be empty")
	}
	if !e.Type.Valid() {
		res.AddError("type", "unknown entity type %q", e.Type)
	}
	keys := make([]string, 0, len(e.Metadata))
	for k := range e.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if n, ok := asFloat(e.Metadata[k]); ok && n < 0 {
			res.AddError("metadata."+k, "must not be negative")
		}
	}
	if len(e.Description) > 20000 {
		res.AddWarning("description", "is very long (%d characters)", len(e.Description))
	}
	return res
}

func wrongType(e *entity.Entity, want entity.EntityType) error {
	return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("entity %s is a %s, not a %s", e.ID, e.Type, want))
}

// asFloat 兼容 JSON 解码后的各种数值表示
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// setIfPresent 只写入非零值，避免元数据里出现空键
func setIfPresent(m map[string]any, key string, v any) {
	switch x := v.(type) {
	case string:
		if x == "" {
			return
		}
	case int:
		if x == 0 {
			return
		}
	case []string:
		if len(x) == 0 {
			return
		}
	}
	m[key] = v
}
