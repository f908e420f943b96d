package narration

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"TinyTales/internal/models"
	"TinyTales/pkg/elevenlabs"
	apperrors "TinyTales/pkg/errors"
	"TinyTales/pkg/llm"
	stores "TinyTales/pkg/storage"

	"github.com/google/uuid"
)

type fakeLLM struct {
	mu    sync.Mutex
	calls int
	last  llm.ChatRequest
	reply string
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.reply, f.err
}

func (f *fakeLLM) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeVoiceProvider struct {
	mu          sync.Mutex
	nextRef     string
	addErr      error
	deleteErr   error
	ttsErr      error
	audio       []byte
	addCalls    int
	ttsCalls    int
	deleted     []string
	lastVoice   string
	lastSpeech  elevenlabs.SpeechRequest
	lastSamples []elevenlabs.Sample
}

func (f *fakeVoiceProvider) AddVoice(ctx context.Context, name string, labels map[string]string, samples ...elevenlabs.Sample) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	f.lastSamples = samples
	if f.addErr != nil {
		return "", f.addErr
	}
	if f.nextRef != "" {
		return f.nextRef, nil
	}
	return "ref-" + uuid.NewString(), nil
}

func (f *fakeVoiceProvider) DeleteVoice(ctx context.Context, voiceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, voiceID)
	return f.deleteErr
}

func (f *fakeVoiceProvider) TextToSpeech(ctx context.Context, voiceID string, req elevenlabs.SpeechRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttsCalls++
	f.lastVoice = voiceID
	f.lastSpeech = req
	if f.ttsErr != nil {
		return nil, f.ttsErr
	}
	return f.audio, nil
}

func (f *fakeVoiceProvider) counts() (add, tts, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls, f.ttsCalls, len(f.deleted)
}

type memStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	types    map[string]string
	writes   int
	writeErr error
	noURL    bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	if _, ok := s.objects[key]; ok {
		return stores.ErrObjectExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *memStore) PublicURL(key string) string {
	if s.noURL {
		return ""
	}
	return "https://cdn.test/" + key
}

func (s *memStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.objects))
	for k := range s.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *memStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type memProfiles struct {
	mu        sync.Mutex
	byUser    map[string]*models.VoiceProfile
	createErr error
	getErr    error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byUser: map[string]*models.VoiceProfile{}}
}

func (m *memProfiles) Create(ctx context.Context, p *models.VoiceProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.byUser[p.UserID]; ok {
		return apperrors.WithCode(apperrors.CodeConflict, "user already has a voice")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	cp := *p
	m.byUser[p.UserID] = &cp
	return nil
}

func (m *memProfiles) GetByUser(ctx context.Context, userID string) (*models.VoiceProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byUser[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) DeleteByUser(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byUser[userID]
	delete(m.byUser, userID)
	return ok, nil
}

func (m *memProfiles) put(p models.VoiceProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[p.UserID] = &p
}

type memCatalog struct {
	mu        sync.Mutex
	items     []models.ContentItem
	createErr error
	creates   int
}

func (c *memCatalog) Create(ctx context.Context, item *models.ContentItem) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates++
	if c.createErr != nil {
		return "", c.createErr
	}
	item.ID = uuid.NewString()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	c.items = append(c.items, *item)
	return item.ID, nil
}

func (c *memCatalog) ListByUser(ctx context.Context, userID string) ([]models.ContentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.ContentItem
	for _, it := range c.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (c *memCatalog) Delete(ctx context.Context, id, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, it := range c.items {
		if it.ID == id && it.UserID == userID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return apperrors.WithCode(apperrors.CodeNotFound, "audio content not found")
}

func (c *memCatalog) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

type memOrphans struct {
	mu       sync.Mutex
	recorded []models.OrphanedAudio
}

func (m *memOrphans) Record(ctx context.Context, o *models.OrphanedAudio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded = append(m.recorded, *o)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	seen     []string
	failed   map[string]int
	orphaned int
}

func (o *recordingObserver) ObserveStage(stage string, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, stage)
	if err != nil {
		if o.failed == nil {
			o.failed = map[string]int{}
		}
		o.failed[stage]++
	}
}

func (o *recordingObserver) ObserveOrphan() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orphaned++
}

// harness wires the real components over in-memory collaborators
type harness struct {
	llm      *fakeLLM
	provider *fakeVoiceProvider
	store    *memStore
	profiles *memProfiles
	catalog  *memCatalog
	orphans  *memOrphans
	observer *recordingObserver
	service  *Service
}

const storyJSON = `{"title": "Pip and the Red Ball", "content": "Once upon a time, there was a little bunny named Pip. Pip loved his red ball. Hop, hop, hop went Pip. And Pip felt very happy."}`

func newHarness() *harness {
	h := &harness{
		llm:      &fakeLLM{reply: storyJSON},
		provider: &fakeVoiceProvider{audio: []byte("ID3-fake-mp3")},
		store:    newMemStore(),
		profiles: newMemProfiles(),
		catalog:  &memCatalog{},
		orphans:  &memOrphans{},
		observer: &recordingObserver{},
	}
	voices := NewVoiceCloneManager(h.provider, h.profiles)
	pipeline := NewOrchestrator(
		h.profiles,
		NewStoryGenerator(h.llm),
		NewSpeechSynthesizer(h.provider),
		NewAudioArchiver(h.store, "audio"),
		h.catalog,
		WithOrphanRecorder(h.orphans),
		WithObserver(h.observer),
	)
	h.service = NewService(voices, pipeline, h.catalog)
	return h
}

func (h *harness) withVoice(userID string) models.VoiceProfile {
	p := models.VoiceProfile{
		ID:               "profile-" + userID,
		UserID:           userID,
		ExternalVoiceRef: "ext-" + userID,
		Name:             "Mom",
		Language:         "en",
		DurationSeconds:  30,
		SizeBytes:        1024,
	}
	h.profiles.put(p)
	return p
}
