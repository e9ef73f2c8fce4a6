package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
	"labot-admin-go/pkg/llm"
	"labot-admin-go/pkg/notification"
	"labot-admin-go/pkg/tasks"
)

type fakeEmbedder struct {
	err    error
	calls  int
	vector []float32
}

func (f *fakeEmbedder) CreateEmbedding(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	v := make([]float32, 1536)
	for i := range v {
		v[i] = 0.01
	}
	return v, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []notification.Notification
	failOn map[uint]error
}

func (f *fakeNotifier) Notify(_ context.Context, n notification.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failOn[n.UserID]; ok {
		return err
	}
	f.sent = append(f.sent, n)
	return nil
}

type fakeHistory struct {
	rows []model.HistoricalQuestion
	err  error
}

func (f *fakeHistory) FindByQuestion(_ context.Context, _ string) ([]model.HistoricalQuestion, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.HistoricalQuestion, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

type failingResolver struct{}

func (failingResolver) RegionForTopic(context.Context, int) (string, error) {
	return "", errors.New("region lookup down")
}

type recordingPublisher struct {
	events []tasks.CacheGroupSavedEvent
	err    error
}

func (p *recordingPublisher) PublishCacheGroupSaved(_ context.Context, e tasks.CacheGroupSavedEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type recordingIndex struct {
	docs    []model.CacheGroupDocument
	similar []model.SimilarQuestion
	err     error
}

func (i *recordingIndex) IndexCacheGroup(_ context.Context, doc model.CacheGroupDocument) error {
	i.docs = append(i.docs, doc)
	return i.err
}

func (i *recordingIndex) SearchSimilar(_ context.Context, _ []float32, k int) ([]model.SimilarQuestion, error) {
	if i.err != nil {
		return nil, i.err
	}
	if len(i.similar) > k {
		return i.similar[:k], nil
	}
	return i.similar, nil
}

type fakeChunkRepo struct {
	subchunks map[string]model.Subchunk
	catalog   model.ChunkCatalog
	err       error
}

func (f *fakeChunkRepo) FindSubchunks(_ context.Context, ids []string) ([]model.Subchunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Subchunk
	for _, id := range ids {
		if c, ok := f.subchunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChunkRepo) Catalog(context.Context) (model.ChunkCatalog, error) {
	return f.catalog, f.err
}

type fakeCatalogRepo struct {
	topics []model.Topic
	tracks []model.ExamTrack
	types  []string
}

func (f *fakeCatalogRepo) ListTopics(context.Context, int) ([]model.Topic, error) {
	return f.topics, nil
}

func (f *fakeCatalogRepo) FindTopicByTitle(_ context.Context, title string, _ int) (*model.Topic, error) {
	for i := range f.topics {
		if f.topics[i].Title == title {
			return &f.topics[i], nil
		}
	}
	return nil, nil
}

func (f *fakeCatalogRepo) ListExamTracks(context.Context) ([]model.ExamTrack, error) {
	return f.tracks, nil
}

func (f *fakeCatalogRepo) ListMessageTypes(context.Context) ([]string, error) {
	return f.types, nil
}

type fakeLLM struct {
	mu          sync.Mutex
	prompts     []string
	chats       [][]llm.Message
	completeErr error
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

// enter 记录同时进行的调用数，并按 delay 模拟一次慢调用。
func (f *fakeLLM) enter() func() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()
	time.Sleep(f.delay)
	return func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, _ float64) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completeErr != nil {
		return "", f.completeErr
	}
	f.prompts = append(f.prompts, prompt)
	return "resumen", nil
}

func (f *fakeLLM) ChatMessages(_ context.Context, messages []llm.Message, _ *llm.GenerationParams) (string, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, messages)
	return "respuesta para " + messages[len(messages)-1].Content, nil
}

type fakePendingRepo struct {
	rows   []model.PendingQuestion
	filter repository.PendingFilter
}

func (f *fakePendingRepo) List(_ context.Context, filter repository.PendingFilter) ([]model.PendingQuestion, error) {
	f.filter = filter
	out := make([]model.PendingQuestion, len(f.rows))
	copy(out, f.rows)
	return out, nil
}
