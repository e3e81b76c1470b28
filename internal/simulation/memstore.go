package simulation

import (
	"context"
	"sort"
	"sync"

	"queue-dispatch/internal/model"
	pkgerrors "queue-dispatch/pkg/errors"
)

// MemoryStore 内存版请求存储与登记表，满足 service.RequestStore、
// service.CapabilityRegistry、service.RequestTypeRegistry
type MemoryStore struct {
	mu            sync.Mutex
	requests      map[string]*model.Request
	order         []string
	servicePoints []model.ServicePoint
	mappings      []model.CapabilityMapping
	types         []model.RequestType
}

// ServicePointID 仿真中服务点的确定性 ID
func ServicePointID(code string) string { return "sp-" + code }

// RequestTypeID 仿真中请求类型的确定性 ID
func RequestTypeID(code string) string { return "rt-" + code }

// NewMemoryStore 按负载描述建立服务点、类型与能力映射
func NewMemoryStore(spec *WorkloadSpec) *MemoryStore {
	s := &MemoryStore{requests: make(map[string]*model.Request)}

	for _, t := range spec.RequestTypes {
		label := t.Label
		if label == "" {
			label = t.Code
		}
		s.types = append(s.types, model.RequestType{
			RequestTypeID:  RequestTypeID(t.Code),
			Code:           t.Code,
			Label:          label,
			PriorityWeight: t.Weight,
			Enabled:        !t.Disabled,
		})
	}
	for _, sp := range spec.ServicePoints {
		id := ServicePointID(sp.Code)
		s.servicePoints = append(s.servicePoints, model.ServicePoint{
			ServicePointID: id,
			Code:           sp.Code,
			Name:           sp.Code,
			Enabled:        !sp.Disabled,
		})
		for _, code := range sp.Types {
			s.mappings = append(s.mappings, model.CapabilityMapping{
				ServicePointID: id,
				RequestTypeID:  RequestTypeID(code),
			})
		}
	}
	return s
}

// Add 写入请求（按值复制）
func (s *MemoryStore) Add(reqs ...model.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range reqs {
		r := reqs[i]
		if _, ok := s.requests[r.RequestID]; !ok {
			s.order = append(s.order, r.RequestID)
		}
		s.requests[r.RequestID] = &r
	}
}

// Requests 全部请求快照，按写入顺序
func (s *MemoryStore) Requests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Request, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.requests[id])
	}
	return out
}

// ── RequestStore ──

func (s *MemoryStore) QueryWaiting(_ context.Context, period model.Period) ([]model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Request
	for _, id := range s.order {
		r := s.requests[id]
		if r.Status == model.StatusWaiting && period.Contains(r.CreatedAt) {
			out = append(out, *r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *MemoryStore) CountWaiting(_ context.Context, servicePointID string, period model.Period) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, r := range s.requests {
		if r.Status == model.StatusWaiting && period.Contains(r.CreatedAt) && r.AssignedTo(servicePointID) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) UpdateAssignment(_ context.Context, requestID, servicePointID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok || r.Status != model.StatusWaiting {
		return pkgerrors.ErrNotWaiting
	}
	id := servicePointID
	r.AssignedServicePointID = &id
	r.Pinned = false
	r.Version++
	return nil
}

// ── CapabilityRegistry ──

func (s *MemoryStore) ListEnabledServicePoints(_ context.Context) ([]model.ServicePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ServicePoint
	for _, sp := range s.servicePoints {
		if sp.Enabled {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *MemoryStore) ListMappings(_ context.Context) ([]model.CapabilityMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CapabilityMapping(nil), s.mappings...), nil
}

// ── RequestTypeRegistry ──

func (s *MemoryStore) ListEnabledTypes(_ context.Context) ([]model.RequestType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.RequestType
	for _, t := range s.types {
		if t.Enabled {
			out = append(out, t)
		}
	}
	return out, nil
}
