package toolkit

import (
	"context"
	"sync"

	"AgentKit-EVM/internal/chain"

	"github.com/google/jsonschema-go/jsonschema"
)

// ExecuteFunc 是工具的执行体。client 作为能力句柄传入，工具通过它访问
// 各链的读写客户端；args 已经通过了工具自己声明的参数校验。
type ExecuteFunc func(ctx context.Context, client *Client, args Args) (any, error)

// Tool 描述一个可被大模型按名字调用的能力单元。Tool 在工具集组装阶段
// 构造，之后不再修改。
type Tool struct {
	// Name 是全局唯一的工具名。
	Name string
	// Description 面向大模型描述工具的用途。
	Description string
	// Schema 声明参数结构，调度器在执行前校验。
	Schema *jsonschema.Schema
	// SupportedChains 限定工具可用的链；为空表示全链可用。
	SupportedChains []chain.Descriptor
	// Execute 是唯一产生副作用的地方。
	Execute ExecuteFunc
}

// Registry 按名称索引工具。重复注册同名工具时后注册者覆盖前者。
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry 创建空的工具注册表。
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Add 合并一批工具描述，同名覆盖。
func (r *Registry) Add(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tool := range tools {
		if tool.Name == "" {
			continue
		}
		if _, exists := r.tools[tool.Name]; !exists {
			r.order = append(r.order, tool.Name)
		}
		r.tools[tool.Name] = tool
	}
}

// Get 按名称查找工具。
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List 按注册顺序返回所有工具。
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}
