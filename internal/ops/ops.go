// Package ops implements the operation registry and trait (C2): a closed
// set of manifest-recordable operation variants, each a three-phase
// check/reconfigure/apply pipeline over the shared BundleState and a
// lazy logical query plan. One struct per variant, one file per struct,
// mirroring the one-struct-per-action-kind layout this codebase already
// uses for tagged-union dispatch.
package ops

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"bundlebase.dev/bundlebase/internal/bberr"
	"bundlebase.dev/bundlebase/internal/planexec"
	"bundlebase.dev/bundlebase/internal/state"
)

// Operation is the closed interface every recordable manifest action
// implements. check and reconfigure never touch I/O or the query plan;
// apply only composes plan nodes, it never executes them.
type Operation interface {
	// Type returns the operation's manifest "type" tag.
	Type() string

	// Check validates the operation against the current state. It must
	// not mutate state nor perform I/O.
	Check(s *state.BundleState) error

	// Reconfigure deterministically updates state: schema, row-count
	// estimate, views, index definitions, registered functions,
	// name/description. Replaying the same operation twice from the
	// same starting state must yield the same resulting state.
	Reconfigure(s *state.BundleState) error

	// Apply extends a logical plan with this operation's effect.
	Apply(plan planexec.LogicalPlan) (planexec.LogicalPlan, error)
}

// Registered operation type tags, matching the manifest YAML "type" field.
const (
	TypeDefinePack     = "definePack"
	TypeAttachBlock    = "attachBlock"
	TypeRemoveColumns  = "removeColumns"
	TypeRenameColumn   = "renameColumn"
	TypeFilter         = "filter"
	TypeSelect         = "select"
	TypeJoin           = "join"
	TypeAttachToJoin   = "attachToJoin"
	TypeSetName        = "setName"
	TypeSetDescription = "setDescription"
	TypeDefineFunction = "defineFunction"
	TypeCreateIndex    = "createIndex"
	TypeIndexBlocks    = "indexBlocks"
	TypeDropIndex      = "dropIndex"
	TypeAttachView     = "attachView"
)

// MarshalOperation encodes op as a YAML mapping carrying both its "type"
// tag and its own fields, flattened into one document.
func MarshalOperation(op Operation) (interface{}, error) {
	raw, err := yaml.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("ops: marshal %s: %w", op.Type(), err)
	}

	var fields yaml.Node
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("ops: marshal %s: %w", op.Type(), err)
	}
	if len(fields.Content) == 0 {
		fields.Kind = yaml.MappingNode
	}

	typeNode := &yaml.Node{Kind: yaml.ScalarNode, Value: "type"}
	valueNode := &yaml.Node{Kind: yaml.ScalarNode, Value: op.Type()}
	doc := &yaml.Node{Kind: yaml.MappingNode, Content: append([]*yaml.Node{typeNode, valueNode}, fields.Content...)}
	return doc, nil
}

// UnmarshalOperation decodes one operation from its YAML node, dispatching
// on the "type" tag. An unrecognized type is a fatal UnknownOperation error.
func UnmarshalOperation(node *yaml.Node) (Operation, error) {
	var tagged struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&tagged); err != nil {
		return nil, bberr.New("ops.UnmarshalOperation", bberr.UnknownOperation, err)
	}

	var op Operation
	switch tagged.Type {
	case TypeDefinePack:
		op = &DefinePack{}
	case TypeAttachBlock:
		op = &AttachBlock{}
	case TypeRemoveColumns:
		op = &RemoveColumns{}
	case TypeRenameColumn:
		op = &RenameColumn{}
	case TypeFilter:
		op = &Filter{}
	case TypeSelect:
		op = &Select{}
	case TypeJoin:
		op = &Join{}
	case TypeAttachToJoin:
		op = &AttachToJoin{}
	case TypeSetName:
		op = &SetName{}
	case TypeSetDescription:
		op = &SetDescription{}
	case TypeDefineFunction:
		op = &DefineFunction{}
	case TypeCreateIndex:
		op = &CreateIndex{}
	case TypeIndexBlocks:
		op = &IndexBlocks{}
	case TypeDropIndex:
		op = &DropIndex{}
	case TypeAttachView:
		op = &AttachView{}
	default:
		return nil, bberr.Newf("ops.UnmarshalOperation", bberr.UnknownOperation, "unknown operation type %q", tagged.Type)
	}

	if err := node.Decode(op); err != nil {
		return nil, bberr.New("ops.UnmarshalOperation", bberr.UnknownOperation, err).WithContext("type", tagged.Type)
	}
	return op, nil
}
