// Package chain 将提示词模板与 ChatModel 编排为可执行工作流
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

// CharacterContextFallback 未检索到角色时注入的占位语
const CharacterContextFallback = "Create new characters as needed"

var defaultPromptRegistry = workflowprompt.NewRegistry()

// SceneChain 场景生成链：模板渲染 -> ChatModel 生成
type SceneChain struct {
	factory workflowport.ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.SceneGenerateInput, *schema.Message]
	chainErr  error
}

func NewSceneChain(factory workflowport.ChatModelFactory) *SceneChain {
	return &SceneChain{factory: factory}
}

func (c *SceneChain) Invoke(ctx context.Context, in *wfmodel.SceneGenerateInput) (*schema.Message, error) {
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

type sceneChainState struct {
	In       *wfmodel.SceneGenerateInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *SceneChain) getChain() (compose.Runnable[*wfmodel.SceneGenerateInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *SceneChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.SceneGenerateInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.SceneGenerateInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.SceneGenerateInput) (*sceneChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &sceneChainState{In: in}, nil
		}),
		compose.WithNodeName("scene.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *sceneChainState) (*sceneChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := FormatSceneMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("scene.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *sceneChainState) (*sceneChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if c.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}

			ctx = llmctx.WithWorkflowProvider(ctx, "scene_generate", strings.TrimSpace(st.In.Provider))
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
		compose.WithNodeName("scene.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *sceneChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("scene.finalize"),
	)

	return chain.Compile(ctx)
}

// FormatSceneMessages 渲染场景生成提示词
// 角色上下文为空时替换为 CharacterContextFallback。
func FormatSceneMessages(ctx context.Context, in *wfmodel.SceneGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(workflowprompt.PromptSceneGenV1)
	if err != nil {
		return nil, err
	}
	characters := strings.TrimSpace(in.CharacterContext)
	if characters == "" {
		characters = CharacterContextFallback
	}
	vars := map[string]any{
		"scene_number": in.SceneNumber,
		"characters":   characters,
		"prompt":       strings.TrimSpace(in.Prompt),
	}
	return tpl.Format(ctx, vars)
}
