package conversation

import (
	"context"
	"errors"
	"fmt"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Mode selects how the generation input is built.
type Mode int

const (
	// ModeStateful sends the budgeted history assembled for the owner.
	ModeStateful Mode = iota
	// ModeStateless sends only the new user message.
	ModeStateless
)

func (m Mode) String() string {
	switch m {
	case ModeStateful:
		return "stateful"
	case ModeStateless:
		return "stateless"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Input is one inbound message.
type Input struct {
	RequestID string
	// OwnerID partitions history. Stateless requests may leave it empty and
	// set ConversationID instead.
	OwnerID        string
	ConversationID string
	Message        string
}

// Result is the outcome of a successful Execute.
type Result struct {
	Message        string
	ResponseID     string
	ConversationID string // stateless mode only
}

// RequestError ties a failure to the request that produced it.
type RequestError struct {
	RequestID string
	OwnerID   string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s (owner %s): %v", e.RequestID, e.OwnerID, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// GenerateMessageUseCase runs generate-then-persist for a single message.
type GenerateMessageUseCase struct {
	mode      Mode
	assembler *ContextAssembler
	generator ports.Generator
	store     ports.HistoryStore
	tracer    ports.Tracer
	logger    zerolog.Logger
}

// NewGenerateMessageUseCase wires a use case. The assembler is required in
// ModeStateful and ignored otherwise.
func NewGenerateMessageUseCase(
	mode Mode,
	assembler *ContextAssembler,
	generator ports.Generator,
	store ports.HistoryStore,
	tracer ports.Tracer,
	logger zerolog.Logger,
) *GenerateMessageUseCase {
	if tracer == nil {
		tracer = noOpTracer{}
	}
	return &GenerateMessageUseCase{
		mode:      mode,
		assembler: assembler,
		generator: generator,
		store:     store,
		tracer:    tracer,
		logger:    logger,
	}
}

// Mode reports the configured mode.
func (u *GenerateMessageUseCase) Mode() Mode { return u.mode }

// Execute builds the generation input, calls the generator once, and stores
// the exchange in a single transaction. Nothing is stored when generation
// fails, and a persistence failure discards the generated text.
func (u *GenerateMessageUseCase) Execute(ctx context.Context, in Input) (res Result, err error) {
	owner := in.OwnerID
	if u.mode == ModeStateless {
		if in.ConversationID == "" {
			in.ConversationID = uuid.NewString()
		}
		if owner == "" {
			owner = in.ConversationID
		}
		res.ConversationID = in.ConversationID
	}

	ctx, finish := u.tracer.StartSpan(ctx, "generate_message", map[string]any{
		"request_id": in.RequestID,
		"owner_id":   owner,
		"mode":       u.mode.String(),
	})
	defer func() {
		if err != nil {
			u.tracer.Event(ctx, "generate_message_failed", map[string]any{
				"request_id":      in.RequestID,
				"owner_id":        owner,
				"conversation_id": res.ConversationID,
				"error":           err.Error(),
			})
			err = &RequestError{RequestID: in.RequestID, OwnerID: owner, Err: err}
			res = Result{}
		}
		finish(err)
	}()

	turns, err := u.buildInput(ctx, owner, in.Message)
	if err != nil {
		return res, err
	}

	gen, err := u.generator.Generate(ctx, owner, turns)
	if err != nil {
		return res, err
	}

	if err := u.persist(ctx, owner, in.Message, gen.Text); err != nil {
		return res, err
	}

	u.tracer.Event(ctx, "message_generated", map[string]any{
		"request_id":  in.RequestID,
		"owner_id":    owner,
		"response_id": gen.ResponseID,
	})

	res.Message = gen.Text
	res.ResponseID = gen.ResponseID
	return res, nil
}

func (u *GenerateMessageUseCase) buildInput(ctx context.Context, owner, message string) ([]ports.ChatTurn, error) {
	if u.mode == ModeStateless {
		return []ports.ChatTurn{{Role: ports.RoleUser, Content: message}}, nil
	}
	if u.assembler == nil {
		return nil, errors.New("stateful mode requires a context assembler")
	}
	return u.assembler.BuildContextDefault(ctx, owner, message)
}

// persist saves one exchange; the connection is always released.
func (u *GenerateMessageUseCase) persist(ctx context.Context, owner, userMessage, aiMessage string) (err error) {
	tx, err := u.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := tx.Close(); cerr != nil {
			u.logger.Warn().Err(cerr).Str("owner_id", owner).Msg("failed to release history connection")
		}
	}()

	if err := tx.Save(ctx, owner, userMessage, aiMessage); err != nil {
		return rollback(tx, err)
	}
	if err := tx.Commit(); err != nil {
		return rollback(tx, err)
	}
	return nil
}

func rollback(tx ports.HistoryTx, cause error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("transaction failed and rollback failed: %w (original error: %w)", rbErr, cause)
	}
	return cause
}
