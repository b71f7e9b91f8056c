package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"game_gate_backend/internal/model"
	"game_gate_backend/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// PolicySeed YAML 中的一条策略
type PolicySeed struct {
	Name       string                 `yaml:"name"`
	RuleType   model.RuleType         `yaml:"rule_type"`
	Priority   int                    `yaml:"priority"`
	Active     *bool                  `yaml:"active,omitempty"` // 省略时为启用
	Conditions map[string]interface{} `yaml:"conditions,omitempty"`
	Actions    map[string]interface{} `yaml:"actions,omitempty"`
}

type PolicySeedFile struct {
	Policies []PolicySeed `yaml:"policies"`
}

// PolicySeedStore 初始化策略所需的存储操作
type PolicySeedStore interface {
	Count(ctx context.Context) (int64, error)
	CreateBatch(ctx context.Context, policies []model.GamePolicy) error
}

// LoadPolicySeeds 读取 YAML 策略文件；路径为空或文件不存在时返回空列表
func LoadPolicySeeds(path string) ([]model.GamePolicy, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("policy seed read: %w", err)
	}

	var f PolicySeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("policy seed unmarshal: %w", err)
	}

	policies := make([]model.GamePolicy, 0, len(f.Policies))
	for i, seed := range f.Policies {
		if seed.Name == "" || seed.RuleType == "" {
			return nil, fmt.Errorf("policy seed #%d: name and rule_type are required", i+1)
		}
		conditions, err := toJSON(seed.Conditions)
		if err != nil {
			return nil, fmt.Errorf("policy seed %q conditions: %w", seed.Name, err)
		}
		actions, err := toJSON(seed.Actions)
		if err != nil {
			return nil, fmt.Errorf("policy seed %q actions: %w", seed.Name, err)
		}
		active := true
		if seed.Active != nil {
			active = *seed.Active
		}
		policies = append(policies, model.GamePolicy{
			Name:       seed.Name,
			RuleType:   seed.RuleType,
			Priority:   seed.Priority,
			Active:     active,
			Conditions: conditions,
			Actions:    actions,
		})
	}
	return policies, nil
}

func toJSON(v map[string]interface{}) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// SeedPolicies 策略表为空时写入种子策略，返回写入条数
func SeedPolicies(ctx context.Context, store PolicySeedStore, path string) (int, error) {
	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count policies: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	policies, err := LoadPolicySeeds(path)
	if err != nil {
		return 0, err
	}
	if err := store.CreateBatch(ctx, policies); err != nil {
		return 0, fmt.Errorf("create seed policies: %w", err)
	}
	if len(policies) > 0 {
		logger.Log.Info("seeded game policies", zap.Int("count", len(policies)), zap.String("file", path))
	}
	return len(policies), nil
}
