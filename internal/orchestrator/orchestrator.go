package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"backend/internal/agents"
	"backend/internal/config"
	"backend/internal/conversation"
	"backend/internal/llm"
	"backend/internal/llm/retry"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/tools"
	"backend/internal/usage"
	llmtypes "backend/pkg/llm"
)

// Request 单轮对话请求
type Request struct {
	TenantID      string `json:"tenant_id"`
	AgentID       string `json:"agent_id"`
	SessionID     string `json:"session_id"`     // 为空则开启新会话
	Message       string `json:"message"`        // 本轮用户消息
	ModelOverride string `json:"model_override"` // 覆盖 Agent 默认模型
}

// Stream 单轮对话的流式结果
// Chunks 关闭表示生成结束；Errs 至多产生一个错误
type Stream struct {
	SessionID string
	Model     string
	Chunks    <-chan llmtypes.StreamChunk
	Errs      <-chan error
}

// Orchestrator 对话编排器
type Orchestrator struct {
	agents      *agents.Service
	resolver    *llm.Resolver
	loader      *tools.Loader
	store       *conversation.Store
	usage       *usage.Service
	policy      retry.Policy
	callTimeout time.Duration
	tracer      trace.Tracer
}

// NewOrchestrator 创建对话编排器
func NewOrchestrator(
	agentService *agents.Service,
	resolver *llm.Resolver,
	loader *tools.Loader,
	store *conversation.Store,
	usageService *usage.Service,
	cfg *config.LLMConfig,
) *Orchestrator {
	policy := retry.DefaultPolicy(isTransient)
	callTimeout := 600 * time.Second
	if cfg != nil {
		if cfg.MaxRetries > 0 {
			policy.MaxAttempts = cfg.MaxRetries
		}
		if cfg.RetryBaseDelay > 0 {
			policy.BaseDelay = time.Duration(cfg.RetryBaseDelay) * time.Millisecond
		}
		if cfg.RetryMaxDelay > 0 {
			policy.MaxDelay = time.Duration(cfg.RetryMaxDelay) * time.Millisecond
		}
		callTimeout = cfg.GetRequestTimeout()
	}

	return &Orchestrator{
		agents:      agentService,
		resolver:    resolver,
		loader:      loader,
		store:       store,
		usage:       usageService,
		policy:      policy,
		callTimeout: callTimeout,
		tracer:      otel.Tracer("backend/internal/orchestrator"),
	}
}

// isTransient 瞬态判定：限流、网络、5xx 可重试，其余终态
func isTransient(err error) bool {
	var clientErr *llmtypes.ClientError
	if ok := asClientError(err, &clientErr); ok {
		return clientErr.IsRetryable()
	}
	return false
}

// Chat 执行一轮对话
// 前置步骤（Agent 加载、模型解析、配额预检、工具加载、历史读取、提示词组装）
// 同步完成并快速失败；模型调用与流式转发在后台进行。
// 调用方断开后仍会完成持久化与计量。
func (o *Orchestrator) Chat(ctx context.Context, req *Request) (*Stream, error) {
	ctx, span := o.tracer.Start(ctx, "Orchestrator.Chat")

	if req.Message == "" {
		span.End()
		return nil, ErrEmptyMessage
	}

	// 1. 加载 Agent
	agent, err := o.agents.Get(ctx, req.TenantID, req.AgentID)
	if err != nil {
		span.End()
		return nil, err
	}

	// 2. 解析模型
	modelIdentifier := agent.ModelIdentifier
	if req.ModelOverride != "" {
		modelIdentifier = req.ModelOverride
	}
	client, err := o.resolver.Resolve(modelIdentifier)
	if err != nil {
		span.End()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("tenant_id", req.TenantID),
		attribute.String("agent_id", req.AgentID),
		attribute.String("model", modelIdentifier),
	)

	// 3. 配额预检：超额请求不产生任何外呼
	if err := o.usage.CheckQuota(ctx, req.TenantID); err != nil {
		if _, ok := err.(*usage.QuotaExceededError); ok {
			metrics.QuotaRejectionsTotal.WithLabelValues(req.TenantID).Inc()
		}
		span.End()
		return nil, err
	}

	// 4. 加载工具：部分缺失不阻断对话
	loaded := o.loader.Load(ctx, req.TenantID, agent.ToolNames)
	if len(loaded.Missing) > 0 {
		metrics.ToolsMissingTotal.Add(float64(len(loaded.Missing)))
	}

	// 5. 读取历史：首轮生成新会话 ID
	sessionID := req.SessionID
	var history []conversation.Message
	if sessionID == "" {
		sessionID = uuid.New().String()
	} else {
		history, err = o.store.History(ctx, req.TenantID, sessionID)
		if err != nil {
			span.End()
			return nil, err
		}
	}
	span.SetAttributes(attribute.String("session_id", sessionID))

	// 6. 组装提示词：system + 历史 + 本轮用户消息
	// 重试期间不再重读历史，所有尝试使用同一份提示词
	prompt := assemblePrompt(agent, history, req.Message)
	llmReq := &llmtypes.ChatRequest{
		Model:         modelIdentifier,
		Messages:      prompt,
		Temperature:   agent.Temperature,
		MaxTokens:     agent.MaxTokens,
		Tools:         loaded.Tools,
		UseFileSearch: agent.UseFileSearch,
	}

	out := make(chan llmtypes.StreamChunk)
	errs := make(chan error, 1)

	go o.run(ctx, span, client, agent, req, sessionID, llmReq, out, errs)

	return &Stream{
		SessionID: sessionID,
		Model:     modelIdentifier,
		Chunks:    out,
		Errs:      errs,
	}, nil
}

// assemblePrompt 组装完整提示词
func assemblePrompt(agent *agents.Agent, history []conversation.Message, userMessage string) []llmtypes.Message {
	prompt := make([]llmtypes.Message, 0, len(history)+2)
	if agent.SystemInstruction != "" {
		prompt = append(prompt, llmtypes.Message{Role: conversation.RoleSystem, Content: agent.SystemInstruction})
	}
	for _, m := range history {
		prompt = append(prompt, llmtypes.Message{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, llmtypes.Message{Role: conversation.RoleUser, Content: userMessage})
	return prompt
}

// run 执行带重试的模型调用并转发流式响应。
// 只有在尚未向调用方转发任何内容时才允许重试；一旦开始转发，
// 中断即为中断，剩余部分照常持久化与计量。
func (o *Orchestrator) run(
	ctx context.Context,
	span trace.Span,
	client llmtypes.ChatClient,
	agent *agents.Agent,
	req *Request,
	sessionID string,
	llmReq *llmtypes.ChatRequest,
	out chan<- llmtypes.StreamChunk,
	errs chan<- error,
) {
	defer span.End()
	defer close(errs)
	defer close(out)

	start := time.Now()
	log := logger.WithContext(ctx)

	var (
		assistantText string
		reportedUsage *llmtypes.Usage
		finalErr      error
		interrupted   bool
	)

	for attempt := 0; ; attempt++ {
		result := o.streamOnce(ctx, client, llmReq, out)
		assistantText = result.text
		if result.usage != nil {
			reportedUsage = result.usage
		}
		finalErr = result.err
		interrupted = result.interrupted

		if finalErr == nil || result.forwarded || !o.policy.ShouldRetry(finalErr, attempt) {
			break
		}

		errType := "unknown"
		var clientErr *llmtypes.ClientError
		if asClientError(finalErr, &clientErr) {
			errType = string(clientErr.Type)
		}
		metrics.ChatRetriesTotal.WithLabelValues(llmReq.Model, errType).Inc()
		log.Warn("模型调用失败，准备重试",
			zap.String("model", llmReq.Model),
			zap.Int("attempt", attempt+1),
			zap.String("error_type", errType),
			zap.Error(finalErr))

		if err := o.policy.Wait(ctx, attempt); err != nil {
			break
		}
	}

	// 调用方断开不影响持久化与计量
	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	o.finalize(finalCtx, agent, req, sessionID, llmReq, assistantText, reportedUsage, finalErr)

	status := "success"
	switch {
	case finalErr != nil:
		status = "error"
	case interrupted:
		status = "interrupted"
		metrics.ChatStreamInterruptionsTotal.WithLabelValues(llmReq.Model).Inc()
	}
	metrics.ChatRequestsTotal.WithLabelValues(status).Inc()
	metrics.ChatDuration.WithLabelValues(llmReq.Model).Observe(time.Since(start).Seconds())

	if finalErr != nil {
		span.RecordError(finalErr)
		errs <- finalErr
	}
}

// streamResult 单次模型调用的结果
type streamResult struct {
	text        string          // 已累积的助手回复
	usage       *llmtypes.Usage // 提供方上报的用量（若有）
	err         error           // 调用错误
	forwarded   bool            // 是否已向调用方转发过内容
	interrupted bool            // 调用方是否中途断开
}

// streamOnce 执行一次模型调用并向 out 转发内容块。
// 调用方断开后停止转发但继续消费，以便完整累积回复与用量。
func (o *Orchestrator) streamOnce(
	ctx context.Context,
	client llmtypes.ChatClient,
	llmReq *llmtypes.ChatRequest,
	out chan<- llmtypes.StreamChunk,
) streamResult {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.callTimeout)
	defer cancel()

	chunks, errCh := client.ChatStream(callCtx, llmReq)

	var result streamResult
	for chunk := range chunks {
		if chunk.Content != "" {
			result.text += chunk.Content
			if !result.interrupted {
				select {
				case out <- chunk:
					result.forwarded = true
				case <-ctx.Done():
					result.interrupted = true
				}
			}
		}
		if chunk.Done {
			if chunk.Usage != nil {
				result.usage = chunk.Usage
			}
			if !result.interrupted {
				select {
				case out <- chunk:
				case <-ctx.Done():
					result.interrupted = true
				}
			}
		}
	}

	if err := <-errCh; err != nil {
		result.err = err
	}
	return result
}

// finalize 持久化消息并记录用量。
// 无论生成成功、失败还是中断，已产生的 Token 都要入账。
func (o *Orchestrator) finalize(
	ctx context.Context,
	agent *agents.Agent,
	req *Request,
	sessionID string,
	llmReq *llmtypes.ChatRequest,
	assistantText string,
	reportedUsage *llmtypes.Usage,
	streamErr error,
) {
	log := logger.WithContext(ctx)
	now := time.Now()

	// 持久化：成功或已有部分回复时写入用户与助手消息
	if streamErr == nil || assistantText != "" {
		msgs := []conversation.Message{
			{
				Role:      conversation.RoleUser,
				Content:   req.Message,
				Timestamp: now,
				Metadata:  map[string]string{"model": llmReq.Model},
			},
		}
		if assistantText != "" {
			msgs = append(msgs, conversation.Message{
				Role:      conversation.RoleAssistant,
				Content:   assistantText,
				Timestamp: time.Now(),
				Metadata:  map[string]string{"model": llmReq.Model},
			})
		}
		if err := o.store.Append(ctx, req.TenantID, sessionID, agent.ID, msgs...); err != nil {
			log.Error("会话消息持久化失败",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	// 计量：优先使用提供方上报的用量，缺失时退回估算
	promptTokens, completionTokens := 0, 0
	switch {
	case reportedUsage != nil:
		promptTokens = reportedUsage.PromptTokens
		completionTokens = reportedUsage.CompletionTokens
	case streamErr == nil || assistantText != "":
		promptTokens = llm.EstimateMessagesTokens(llmReq.Messages)
		completionTokens = llm.EstimateTokens(assistantText)
	default:
		// 外呼从未产生内容也无上报用量，没有需要入账的成本
		return
	}

	rec := usage.Record{
		TenantID:         req.TenantID,
		SessionID:        sessionID,
		Model:            llmReq.Model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
	}
	if err := o.usage.RecordUsage(ctx, rec); err != nil {
		log.Error("用量记录失败",
			zap.String("tenant_id", req.TenantID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return
	}

	metrics.PromptTokensTotal.WithLabelValues(req.TenantID, llmReq.Model).Add(float64(promptTokens))
	metrics.CompletionTokensTotal.WithLabelValues(req.TenantID, llmReq.Model).Add(float64(completionTokens))
}
