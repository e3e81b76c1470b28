// Package simulation 生成可复现的合成排队负载，并在内存中驱动调度与分配，
// 用于在不依赖数据库的情况下观察不同算法与服务点配置下的表现。
package simulation

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"queue-dispatch/internal/scheduling"
)

// WorkloadSpec 仿真负载描述（YAML）
type WorkloadSpec struct {
	Seed int64 `yaml:"seed"`
	// 仿真时长（分钟），从起始时刻开始计
	HorizonMinutes int `yaml:"horizon_minutes"`
	// 平均每分钟到达数，到达间隔服从指数分布
	ArrivalRate float64 `yaml:"arrival_rate"`
	// 最终叫号顺序使用的算法
	Algorithm string `yaml:"algorithm"`
	// 每到达 N 个请求执行一次分配重算，<=0 表示只在结束时执行一次
	RecalculateEvery int `yaml:"recalculate_every,omitempty"`

	RequestTypes  []RequestTypeSpec  `yaml:"request_types"`
	ServicePoints []ServicePointSpec `yaml:"service_points"`
}

// RequestTypeSpec 请求类型及其在到达流中的占比
type RequestTypeSpec struct {
	Code   string  `yaml:"code"`
	Label  string  `yaml:"label,omitempty"`
	Weight int     `yaml:"weight"`
	Share  float64 `yaml:"share"`
	// 停用的类型仍会到达，但不会登记到类型表中
	Disabled bool `yaml:"disabled,omitempty"`
}

// ServicePointSpec 服务点及其可办理的类型编码；Types 为空表示未配置能力映射
type ServicePointSpec struct {
	Code     string   `yaml:"code"`
	Types    []string `yaml:"types,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
}

// LoadWorkloadSpec 读取并校验 YAML 负载文件
func LoadWorkloadSpec(path string) (*WorkloadSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取负载文件失败: %w", err)
	}
	return ParseWorkloadSpec(data)
}

// ParseWorkloadSpec 解析 YAML，未知字段视为错误
func ParseWorkloadSpec(data []byte) (*WorkloadSpec, error) {
	var spec WorkloadSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("解析负载文件失败: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate 校验负载参数
func (s *WorkloadSpec) Validate() error {
	if s.HorizonMinutes <= 0 {
		return fmt.Errorf("horizon_minutes 必须为正数，实际 %d", s.HorizonMinutes)
	}
	if s.ArrivalRate <= 0 {
		return fmt.Errorf("arrival_rate 必须为正数，实际 %g", s.ArrivalRate)
	}
	if len(s.RequestTypes) == 0 {
		return fmt.Errorf("至少需要一个请求类型")
	}
	if s.Algorithm != "" {
		if _, ok := scheduling.ParseAlgorithm(s.Algorithm); !ok {
			return fmt.Errorf("不支持的算法 %q", s.Algorithm)
		}
	}

	codes := make(map[string]bool, len(s.RequestTypes))
	var total float64
	for i, rt := range s.RequestTypes {
		if rt.Code == "" {
			return fmt.Errorf("request_types[%d]: code 不能为空", i)
		}
		if codes[rt.Code] {
			return fmt.Errorf("request_types[%d]: code %q 重复", i, rt.Code)
		}
		if rt.Share < 0 {
			return fmt.Errorf("request_types[%d]: share 不能为负", i)
		}
		codes[rt.Code] = true
		total += rt.Share
	}
	if total <= 0 {
		return fmt.Errorf("request_types 的 share 之和必须为正数")
	}

	spCodes := make(map[string]bool, len(s.ServicePoints))
	for i, sp := range s.ServicePoints {
		if sp.Code == "" {
			return fmt.Errorf("service_points[%d]: code 不能为空", i)
		}
		if spCodes[sp.Code] {
			return fmt.Errorf("service_points[%d]: code %q 重复", i, sp.Code)
		}
		spCodes[sp.Code] = true
		for _, t := range sp.Types {
			if !codes[t] {
				return fmt.Errorf("service_points[%d]: 未知请求类型 %q", i, t)
			}
		}
	}
	return nil
}

// algorithm 解析后的算法，未配置时为 FIFO
func (s *WorkloadSpec) algorithm() scheduling.Algorithm {
	if s.Algorithm == "" {
		return scheduling.AlgorithmFIFO
	}
	alg, _ := scheduling.ParseAlgorithm(s.Algorithm)
	return alg
}
