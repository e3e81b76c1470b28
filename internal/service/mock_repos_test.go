package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"queue-dispatch/internal/model"
	"queue-dispatch/internal/repository"
	pkgerrors "queue-dispatch/pkg/errors"
)

// ── Mock RequestRepository ──

type mockRequestRepo struct {
	reqs  map[string]*model.Request
	order []string
	seq   int

	queryErr    error
	countErr    map[string]error // servicePointID → error
	assignErr   map[string]error // requestID → error
	assignCalls int
	updateCalls int
}

func newMockRequestRepo() *mockRequestRepo {
	return &mockRequestRepo{
		reqs:      make(map[string]*model.Request),
		countErr:  make(map[string]error),
		assignErr: make(map[string]error),
	}
}

// put 直接写入一条记录（测试数据准备）
func (m *mockRequestRepo) put(r *model.Request) {
	if r.RequestID == "" {
		m.seq++
		r.RequestID = fmt.Sprintf("req-%03d", m.seq)
	}
	if r.Version == 0 {
		r.Version = 1
	}
	if _, ok := m.reqs[r.RequestID]; !ok {
		m.order = append(m.order, r.RequestID)
	}
	m.reqs[r.RequestID] = r
}

func (m *mockRequestRepo) CreateNumbered(_ context.Context, req *model.Request, period model.Period) error {
	highest := 0
	for _, r := range m.reqs {
		if period.Contains(r.CreatedAt) && r.Number > highest {
			highest = r.Number
		}
	}
	req.Number = highest + 1
	cp := *req
	m.put(&cp)
	req.RequestID = cp.RequestID
	req.Version = cp.Version
	return nil
}

func (m *mockRequestRepo) GetByID(_ context.Context, id string) (*model.Request, error) {
	if r, ok := m.reqs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestRepo) QueryWaiting(_ context.Context, period model.Period) ([]model.Request, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	var result []model.Request
	for _, id := range m.order {
		r := m.reqs[id]
		if r.Status == model.StatusWaiting && period.Contains(r.CreatedAt) {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRequestRepo) CountWaiting(_ context.Context, servicePointID string, period model.Period) (int64, error) {
	if err := m.countErr[servicePointID]; err != nil {
		return 0, err
	}
	var n int64
	for _, r := range m.reqs {
		if r.Status == model.StatusWaiting && r.AssignedTo(servicePointID) && period.Contains(r.CreatedAt) {
			n++
		}
	}
	return n, nil
}

func (m *mockRequestRepo) UpdateAssignment(_ context.Context, requestID, servicePointID string) error {
	m.assignCalls++
	if err := m.assignErr[requestID]; err != nil {
		return err
	}
	r, ok := m.reqs[requestID]
	if !ok || r.Status != model.StatusWaiting {
		return pkgerrors.ErrNotWaiting
	}
	sp := servicePointID
	r.AssignedServicePointID = &sp
	r.Pinned = false
	r.Version++
	return nil
}

func (m *mockRequestRepo) Update(_ context.Context, req *model.Request) error {
	m.updateCalls++
	stored, ok := m.reqs[req.RequestID]
	if !ok || stored.Version != req.Version {
		return pkgerrors.ErrOptimisticLock
	}
	req.Version++
	cp := *req
	m.reqs[req.RequestID] = &cp
	return nil
}

func (m *mockRequestRepo) ListByPeriod(_ context.Context, period model.Period) ([]model.Request, error) {
	var result []model.Request
	for _, id := range m.order {
		if r := m.reqs[id]; period.Contains(r.CreatedAt) {
			result = append(result, *r)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (m *mockRequestRepo) ListPageByPeriod(ctx context.Context, period model.Period, offset, limit int) ([]model.Request, int64, error) {
	all, _ := m.ListByPeriod(ctx, period)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Number > all[j].Number })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock RequestTypeRepository ──

type mockRequestTypeRepo struct {
	types   map[string]*model.RequestType
	order   []string
	listErr error
}

func newMockRequestTypeRepo() *mockRequestTypeRepo {
	return &mockRequestTypeRepo{types: make(map[string]*model.RequestType)}
}

func (m *mockRequestTypeRepo) Create(_ context.Context, rt *model.RequestType) error {
	if rt.RequestTypeID == "" {
		rt.RequestTypeID = "rt-" + rt.Code
	}
	if _, ok := m.types[rt.RequestTypeID]; !ok {
		m.order = append(m.order, rt.RequestTypeID)
	}
	m.types[rt.RequestTypeID] = rt
	return nil
}

func (m *mockRequestTypeRepo) GetByID(_ context.Context, id string) (*model.RequestType, error) {
	if rt, ok := m.types[id]; ok {
		return rt, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestTypeRepo) GetByCode(_ context.Context, code string) (*model.RequestType, error) {
	for _, rt := range m.types {
		if rt.Code == code {
			return rt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRequestTypeRepo) List(_ context.Context) ([]model.RequestType, error) {
	var result []model.RequestType
	for _, id := range m.order {
		result = append(result, *m.types[id])
	}
	return result, nil
}

func (m *mockRequestTypeRepo) ListEnabledTypes(_ context.Context) ([]model.RequestType, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.RequestType
	for _, id := range m.order {
		if rt := m.types[id]; rt.Enabled {
			result = append(result, *rt)
		}
	}
	return result, nil
}

func (m *mockRequestTypeRepo) Update(_ context.Context, rt *model.RequestType) error {
	m.types[rt.RequestTypeID] = rt
	return nil
}

// ── Mock ServicePointRepository ──

type mockServicePointRepo struct {
	points map[string]*model.ServicePoint
	order  []string
	caps   *mockCapabilityRepo
}

func newMockServicePointRepo() *mockServicePointRepo {
	return &mockServicePointRepo{points: make(map[string]*model.ServicePoint)}
}

func (m *mockServicePointRepo) Create(_ context.Context, sp *model.ServicePoint) error {
	if sp.ServicePointID == "" {
		sp.ServicePointID = "sp-" + sp.Code
	}
	if _, ok := m.points[sp.ServicePointID]; !ok {
		m.order = append(m.order, sp.ServicePointID)
	}
	m.points[sp.ServicePointID] = sp
	return nil
}

func (m *mockServicePointRepo) GetByID(_ context.Context, id string) (*model.ServicePoint, error) {
	sp, ok := m.points[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sp
	cp.Capabilities = m.caps.byServicePoint(id)
	return &cp, nil
}

func (m *mockServicePointRepo) List(_ context.Context) ([]model.ServicePoint, error) {
	var result []model.ServicePoint
	for _, id := range m.order {
		cp := *m.points[id]
		cp.Capabilities = m.caps.byServicePoint(id)
		result = append(result, cp)
	}
	return result, nil
}

func (m *mockServicePointRepo) Update(_ context.Context, sp *model.ServicePoint) error {
	m.points[sp.ServicePointID] = sp
	return nil
}

// ── Mock CapabilityRepository ──

type mockCapabilityRepo struct {
	points   *mockServicePointRepo
	mappings []model.CapabilityMapping

	pointsErr   error
	mappingsErr error
}

func newMockCapabilityRepo(points *mockServicePointRepo) *mockCapabilityRepo {
	return &mockCapabilityRepo{points: points}
}

func (m *mockCapabilityRepo) byServicePoint(id string) []model.CapabilityMapping {
	var result []model.CapabilityMapping
	for _, cm := range m.mappings {
		if cm.ServicePointID == id {
			result = append(result, cm)
		}
	}
	return result
}

func (m *mockCapabilityRepo) ListEnabledServicePoints(_ context.Context) ([]model.ServicePoint, error) {
	if m.pointsErr != nil {
		return nil, m.pointsErr
	}
	var result []model.ServicePoint
	for _, id := range m.points.order {
		if sp := m.points.points[id]; sp.Enabled {
			result = append(result, *sp)
		}
	}
	return result, nil
}

func (m *mockCapabilityRepo) ListMappings(_ context.Context) ([]model.CapabilityMapping, error) {
	if m.mappingsErr != nil {
		return nil, m.mappingsErr
	}
	return append([]model.CapabilityMapping(nil), m.mappings...), nil
}

func (m *mockCapabilityRepo) ListByServicePoint(_ context.Context, servicePointID string) ([]model.CapabilityMapping, error) {
	return m.byServicePoint(servicePointID), nil
}

func (m *mockCapabilityRepo) ReplaceForServicePoint(_ context.Context, servicePointID string, typeIDs []string, _ string) error {
	kept := m.mappings[:0]
	for _, cm := range m.mappings {
		if cm.ServicePointID != servicePointID {
			kept = append(kept, cm)
		}
	}
	m.mappings = kept
	for _, id := range typeIDs {
		m.mappings = append(m.mappings, model.CapabilityMapping{ServicePointID: servicePointID, RequestTypeID: id})
	}
	return nil
}

// ── Mock QueueSettingRepository ──

type mockQueueSettingRepo struct {
	setting *model.QueueSetting
	getErr  error
}

func newMockQueueSettingRepo() *mockQueueSettingRepo {
	return &mockQueueSettingRepo{}
}

func (m *mockQueueSettingRepo) Get(_ context.Context) (*model.QueueSetting, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.setting == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m.setting
	return &cp, nil
}

func (m *mockQueueSettingRepo) Update(_ context.Context, setting *model.QueueSetting) error {
	cp := *setting
	m.setting = &cp
	return nil
}

// ── Mock OperatorRepository ──

type mockOperatorRepo struct {
	operators map[string]*model.Operator // key: operator_id 与 username
}

func newMockOperatorRepo() *mockOperatorRepo {
	return &mockOperatorRepo{operators: make(map[string]*model.Operator)}
}

func (m *mockOperatorRepo) put(op *model.Operator) {
	m.operators[op.OperatorID] = op
	m.operators["username:"+op.Username] = op
}

func (m *mockOperatorRepo) GetByID(_ context.Context, id string) (*model.Operator, error) {
	if op, ok := m.operators[id]; ok {
		return op, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOperatorRepo) GetByUsername(_ context.Context, username string) (*model.Operator, error) {
	if op, ok := m.operators["username:"+username]; ok {
		return op, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock 聚合 ──

type mockStores struct {
	requests  *mockRequestRepo
	types     *mockRequestTypeRepo
	points    *mockServicePointRepo
	caps      *mockCapabilityRepo
	setting   *mockQueueSettingRepo
	operators *mockOperatorRepo
}

func newMockRepository() (*repository.Repository, *mockStores) {
	points := newMockServicePointRepo()
	caps := newMockCapabilityRepo(points)
	points.caps = caps

	st := &mockStores{
		requests:  newMockRequestRepo(),
		types:     newMockRequestTypeRepo(),
		points:    points,
		caps:      caps,
		setting:   newMockQueueSettingRepo(),
		operators: newMockOperatorRepo(),
	}
	repo := &repository.Repository{
		Request:      st.requests,
		RequestType:  st.types,
		ServicePoint: st.points,
		Capability:   st.caps,
		QueueSetting: st.setting,
		Operator:     st.operators,
	}
	return repo, st
}

// addType 登记一个已启用的请求类型，返回其 ID
func (st *mockStores) addType(code string, weight int) string {
	rt := &model.RequestType{Code: code, Label: code, PriorityWeight: weight, Enabled: true}
	_ = st.types.Create(context.Background(), rt)
	return rt.RequestTypeID
}

// addServicePoint 登记服务点及其可办理类型，返回其 ID
func (st *mockStores) addServicePoint(code string, enabled bool, typeIDs ...string) string {
	sp := &model.ServicePoint{Code: code, Name: code, Enabled: enabled}
	_ = st.points.Create(context.Background(), sp)
	for _, id := range typeIDs {
		st.caps.mappings = append(st.caps.mappings, model.CapabilityMapping{
			ServicePointID: sp.ServicePointID,
			RequestTypeID:  id,
		})
	}
	return sp.ServicePointID
}

// addRequest 写入一条等待请求；spID 为空表示未分配
func (st *mockStores) addRequest(typeCode string, createdAt time.Time, spID string) *model.Request {
	r := &model.Request{
		TypeCode: typeCode,
		Status:   model.StatusWaiting,
		Number:   len(st.requests.order) + 1,
	}
	r.CreatedAt = createdAt
	if spID != "" {
		id := spID
		r.AssignedServicePointID = &id
	}
	st.requests.put(r)
	return r
}

// assignmentOf 读取请求当前分配的服务点 ID（未分配为空串）
func (st *mockStores) assignmentOf(requestID string) string {
	r := st.requests.reqs[requestID]
	if r == nil || r.AssignedServicePointID == nil {
		return ""
	}
	return *r.AssignedServicePointID
}

// ── Mock RefreshNotifier ──

type recordingNotifier struct {
	reasons []string
}

func (n *recordingNotifier) Trigger(reason string) {
	n.reasons = append(n.reasons, reason)
}
