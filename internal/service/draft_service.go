package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"labot-admin-go/internal/apperr"
	"labot-admin-go/internal/config"
	"labot-admin-go/internal/model"
	"labot-admin-go/internal/repository"
	"labot-admin-go/pkg/llm"
	"labot-admin-go/pkg/log"
	"labot-admin-go/pkg/metrics"
)

// DraftInput 是起草答案的请求。
type DraftInput struct {
	Question string
	Chunks   model.ChunksByRegion
	Topics   []string
}

// DraftService 根据选中的法规切片为每个区域起草答案。
type DraftService interface {
	// Draft 并发起草所有区域的答案，任一区域失败则整体失败。
	Draft(ctx context.Context, in DraftInput) (model.AnswerByRegion, error)
}

type draftService struct {
	chunkRepo   repository.ChunkRepository
	catalogRepo repository.CatalogRepository
	llmClient   llm.Client
	prompts     config.LLMPromptConfig
	summaryTemp float64
	maxInFlight int
	kbFolderID  int
}

// NewDraftService 创建一个新的 DraftService 实例。
func NewDraftService(chunkRepo repository.ChunkRepository, catalogRepo repository.CatalogRepository, llmClient llm.Client,
	llmCfg config.LLMConfig, kbFolderID int) DraftService {
	maxInFlight := llmCfg.Generation.MaxConcurrency
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &draftService{
		chunkRepo:   chunkRepo,
		catalogRepo: catalogRepo,
		llmClient:   llmClient,
		prompts:     llmCfg.Prompt,
		summaryTemp: llmCfg.Generation.SummaryTemperature,
		maxInFlight: maxInFlight,
		kbFolderID:  kbFolderID,
	}
}

func (s *draftService) Draft(ctx context.Context, in DraftInput) (model.AnswerByRegion, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, apperr.Validation("La pregunta no puede estar vacía")
	}
	if len(in.Chunks) == 0 {
		return nil, apperr.Validation("Selecciona al menos un fragmento")
	}
	start := time.Now()
	defer func() { metrics.DraftDuration.Observe(time.Since(start).Seconds()) }()

	topicSummary, err := s.topicSummary(ctx, in.Topics)
	if err != nil {
		return nil, err
	}

	// 所有区域共享同一个信号量，LLM 并发调用总数不超过 maxInFlight。
	sem := semaphore.NewWeighted(int64(s.maxInFlight))
	var mu sync.Mutex
	answers := make(model.AnswerByRegion, len(in.Chunks))
	g, gctx := errgroup.WithContext(ctx)
	for region, ids := range in.Chunks {
		region, ids := region, ids
		g.Go(func() error {
			answer, err := s.draftRegion(gctx, sem, question, ids, topicSummary)
			if err != nil {
				log.Errorf("[DraftService] 区域 '%s' 起草失败: %v", region, err)
				return fmt.Errorf("region %s: %w", region, err)
			}
			mu.Lock()
			answers[region] = answer
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Upstream("No se pudo generar la respuesta", err)
	}
	log.Infof("[DraftService] 起草完成, regions: %v, 耗时: %s", sortedKeys(answers), time.Since(start))
	return answers, nil
}

// topicSummary 只在恰好选中一个主题且该主题有摘要时返回摘要。
func (s *draftService) topicSummary(ctx context.Context, topics []string) (string, error) {
	if len(topics) != 1 {
		return "", nil
	}
	topic, err := s.catalogRepo.FindTopicByTitle(ctx, topics[0], s.kbFolderID)
	if err != nil {
		return "", err
	}
	if topic == nil {
		return "", nil
	}
	return strings.TrimSpace(topic.Summary), nil
}

func (s *draftService) draftRegion(ctx context.Context, sem *semaphore.Weighted, question string, ids []string, topicSummary string) (string, error) {
	subchunks, err := s.chunkRepo.FindSubchunks(ctx, ids)
	if err != nil {
		return "", err
	}
	if len(subchunks) == 0 {
		return "", nil
	}

	summaries, err := s.summarizeByDocument(ctx, sem, question, subchunks)
	if err != nil {
		return "", err
	}

	var relevant strings.Builder
	relevant.WriteString("DATOS RELEVANTES\n### MARCO LEGAL \n")
	relevant.WriteString(summaries)
	if topicSummary != "" {
		relevant.WriteString("\n\n### RESUMEN DEL TEMA \n")
		relevant.WriteString(topicSummary)
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer sem.Release(1)
	return s.llmClient.ChatMessages(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: s.prompts.System},
		{Role: llm.RoleUser, Content: relevant.String()},
		{Role: llm.RoleUser, Content: question},
	}, nil)
}

// summarizeByDocument 对每个切片单独生成摘要，再按文档分组拼接。
func (s *draftService) summarizeByDocument(ctx context.Context, sem *semaphore.Weighted, question string, subchunks []model.Subchunk) (string, error) {
	summaries := make([]string, len(subchunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxInFlight)
	for i := range subchunks {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			id := subchunks[i].ItemIdentifier.Data()
			content := fmt.Sprintf("%s %s %s \n\n %s", id.DocumentID, id.Title, id.Subtitle, subchunks[i].Text)
			prompt := strings.NewReplacer("{content_docs}", content, "{q}", question).Replace(s.prompts.Summarize)
			summary, err := s.llmClient.Complete(gctx, prompt, s.summaryTemp)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	byDocument := make(map[string][]string)
	for i, chunk := range subchunks {
		docID := chunk.ItemIdentifier.Data().DocumentID
		byDocument[docID] = append(byDocument[docID], summaries[i])
	}
	docIDs := sortedKeys(byDocument)
	parts := make([]string, 0, len(docIDs))
	for _, docID := range docIDs {
		parts = append(parts, docID+"\n"+strings.Join(byDocument[docID], "\n"))
	}
	return strings.Join(parts, "\n\n"), nil
}
