package service

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/oncohub/oncohub/internal/domain"
	"github.com/oncohub/oncohub/internal/domain/casefile"
	"github.com/oncohub/oncohub/internal/domain/patient"
	"github.com/oncohub/oncohub/internal/domain/request"
)

// In-memory repository fakes. They copy on read and write the way a real
// row fetch does, so a service mutating a returned struct cannot silently
// change stored state.

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]request.DoctorRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]request.DoctorRequest)}
}

func (f *fakeRequestRepo) Create(_ context.Context, r *request.DoctorRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.requests[r.ID] = *r
	return nil
}

func (f *fakeRequestRepo) GetByID(_ context.Context, id uuid.UUID) (*request.DoctorRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, request.ErrRequestNotFound
	}
	copied := r
	return &copied, nil
}

func (f *fakeRequestRepo) UpdateStatus(_ context.Context, r *request.DoctorRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.requests[r.ID]
	if !ok {
		return request.ErrRequestNotFound
	}
	if stored.Status != r.Status && !stored.CanTransitionTo(r.Status) {
		return request.ErrInvalidStatusTransition
	}
	stored.Status = r.Status
	stored.ScheduleNote = r.ScheduleNote
	stored.ProposedSlot = r.ProposedSlot
	f.requests[r.ID] = stored
	return nil
}

func (f *fakeRequestRepo) List(_ context.Context, q *request.ListRequestsQuery) (*request.PagedRequests, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*request.DoctorRequest
	for _, r := range f.requests {
		if q.PatientID != nil && r.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && r.DoctorID != *q.DoctorID {
			continue
		}
		if q.Status != nil && r.Status != *q.Status {
			continue
		}
		copied := r
		out = append(out, &copied)
	}
	return &request.PagedRequests{
		Requests:   out,
		TotalCount: int64(len(out)),
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: 1,
	}, nil
}

func (f *fakeRequestRepo) HasAccepted(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.DoctorID == doctorID && r.PatientID == patientID && r.Status == request.StatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestRepo) HasPending(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.DoctorID == doctorID && r.PatientID == patientID && r.Status == request.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

type fakeCaseFileRepo struct {
	mu          sync.Mutex
	records     map[uuid.UUID]casefile.CaseRecord
	addenda     map[uuid.UUID][]casefile.Addendum
	files       map[uuid.UUID]casefile.MedicalFile
	assessments []casefile.RiskAssessment
}

func newFakeCaseFileRepo() *fakeCaseFileRepo {
	return &fakeCaseFileRepo{
		records: make(map[uuid.UUID]casefile.CaseRecord),
		addenda: make(map[uuid.UUID][]casefile.Addendum),
		files:   make(map[uuid.UUID]casefile.MedicalFile),
	}
}

func (f *fakeCaseFileRepo) CreateRecord(_ context.Context, r *casefile.CaseRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	f.records[r.ID] = *r
	return nil
}

func (f *fakeCaseFileRepo) GetRecordByID(_ context.Context, id uuid.UUID) (*casefile.CaseRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil, casefile.ErrRecordNotFound
	}
	copied := r
	copied.Addenda = append([]casefile.Addendum(nil), f.addenda[id]...)
	return &copied, nil
}

func (f *fakeCaseFileRepo) AddAddendum(_ context.Context, a *casefile.Addendum) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	f.addenda[a.CaseRecordID] = append(f.addenda[a.CaseRecordID], *a)
	return nil
}

func (f *fakeCaseFileRepo) ListRecords(_ context.Context, q *casefile.ListRecordsQuery) (*casefile.PagedRecords, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*casefile.CaseRecord
	for _, r := range f.records {
		if q.PatientID != nil && r.PatientID != *q.PatientID {
			continue
		}
		if q.Type != nil && r.Type != *q.Type {
			continue
		}
		copied := r
		out = append(out, &copied)
	}
	return &casefile.PagedRecords{Records: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

func (f *fakeCaseFileRepo) CreateFile(_ context.Context, file *casefile.MedicalFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file.ID == uuid.Nil {
		file.ID = uuid.New()
	}
	f.files[file.ID] = *file
	return nil
}

func (f *fakeCaseFileRepo) GetFileByID(_ context.Context, id uuid.UUID) (*casefile.MedicalFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, casefile.ErrFileNotFound
	}
	copied := file
	return &copied, nil
}

func (f *fakeCaseFileRepo) ListFiles(_ context.Context, patientID uuid.UUID) ([]*casefile.MedicalFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*casefile.MedicalFile
	for _, file := range f.files {
		if file.PatientID != patientID {
			continue
		}
		copied := file
		copied.Content = nil
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeCaseFileRepo) CreateAssessment(_ context.Context, a *casefile.RiskAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	// Prepend so the newest assessment is first, matching the real query order
	f.assessments = append([]casefile.RiskAssessment{*a}, f.assessments...)
	return nil
}

func (f *fakeCaseFileRepo) ListAssessments(_ context.Context, patientID uuid.UUID) ([]*casefile.RiskAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*casefile.RiskAssessment
	for i := range f.assessments {
		if f.assessments[i].PatientID != patientID {
			continue
		}
		copied := f.assessments[i]
		out = append(out, &copied)
	}
	return out, nil
}

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]patient.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]patient.Patient)}
}

func (f *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.patients {
		if existing.UserID == p.UserID {
			return patient.ErrProfileExists
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.patients[p.ID] = *p
	return nil
}

func (f *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok || p.DeletedAt != nil {
		return nil, patient.ErrPatientNotFound
	}
	copied := p
	return &copied, nil
}

func (f *fakePatientRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.patients {
		if p.UserID == userID && p.DeletedAt == nil {
			copied := p
			return &copied, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (f *fakePatientRepo) Update(_ context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	if cmd.FirstName != nil {
		p.FirstName = *cmd.FirstName
	}
	if cmd.Notes != nil {
		p.Notes = *cmd.Notes
	}
	if cmd.Oncology != nil {
		p.Oncology = cmd.Oncology
	}
	f.patients[id] = p
	copied := p
	return &copied, nil
}

func (f *fakePatientRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.patients[id]
	if !ok {
		return patient.ErrPatientNotFound
	}
	p.Status = patient.StatusInactive
	f.patients[id] = p
	return nil
}

func (f *fakePatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*patient.Patient
	for _, p := range f.patients {
		if q.Search != "" && !strings.Contains(strings.ToLower(p.FirstName+" "+p.LastName), strings.ToLower(q.Search)) {
			continue
		}
		copied := p
		out = append(out, &copied)
	}
	return &patient.PagedPatients{Patients: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize, TotalPages: 1}, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.users[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(strings.TrimSpace(email)) {
			copied := u
			return &copied, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (f *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	copied := u
	return &copied, nil
}

func (f *fakeUserRepo) UpdateLoginAttempt(_ context.Context, id uuid.UUID, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrInvalidCredentials
	}
	if success {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
	} else {
		u.FailedLoginCount++
	}
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrInvalidCredentials
	}
	u.PasswordHash = hash
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) UpdateMFA(_ context.Context, id uuid.UUID, enabled bool, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrInvalidCredentials
	}
	u.MFAEnabled = enabled
	u.MFASecret = secret
	f.users[id] = u
	return nil
}

func (f *fakeUserRepo) LinkProfile(_ context.Context, id uuid.UUID, role domain.Role, profileID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return ErrInvalidCredentials
	}
	if role == domain.RoleDoctor {
		u.DoctorID = &profileID
	} else {
		u.PatientID = &profileID
	}
	f.users[id] = u
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}
