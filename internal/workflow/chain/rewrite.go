package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "storyspark-api/internal/domain/service"
	wfmodel "storyspark-api/internal/workflow/model"
	workflowport "storyspark-api/internal/workflow/port"
	workflowprompt "storyspark-api/internal/workflow/prompt"
)

// RewriteChain 场景改写链：原文 + 改写指令 -> 重写后的场景
type RewriteChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.SceneRewriteInput, *schema.Message]
	chainErr  error
}

func NewRewriteChain(factory workflowport.ChatModelFactory) *RewriteChain {
	return &RewriteChain{factory: factory}
}

func (c *RewriteChain) Invoke(ctx context.Context, in *wfmodel.SceneRewriteInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type rewriteChainState struct {
	In       *wfmodel.SceneRewriteInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *RewriteChain) getChain() (compose.Runnable[*wfmodel.SceneRewriteInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *RewriteChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.SceneRewriteInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.SceneRewriteInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.SceneRewriteInput) (*rewriteChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &rewriteChainState{In: in}, nil
		}),
		compose.WithNodeName("rewrite.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *rewriteChainState) (*rewriteChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := FormatRewriteMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("rewrite.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *rewriteChainState) (*rewriteChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if c.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}

			ctx = llmctx.WithWorkflowProvider(ctx, "scene_rewrite", strings.TrimSpace(st.In.Provider))
			chatModel, err := c.factory.Get(ctx, strings.TrimSpace(st.In.Provider))
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages)
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("rewrite.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *rewriteChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("rewrite.finalize"),
	)

	return chain.Compile(ctx)
}

// FormatRewriteMessages 渲染场景改写提示词
func FormatRewriteMessages(ctx context.Context, in *wfmodel.SceneRewriteInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptSceneRewriteV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"instructions": strings.TrimSpace(in.Instructions),
		"scene":        in.Scene,
	}
	return tpl.Format(ctx, vars)
}
