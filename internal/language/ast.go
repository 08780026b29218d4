package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	QueryDocument            = ast.QueryDocument
	SchemaDocument           = ast.SchemaDocument
	Source                   = ast.Source
	OperationDefinition      = ast.OperationDefinition
	OperationList            = ast.OperationList
	VariableDefinition       = ast.VariableDefinition
	VariableDefinitionList   = ast.VariableDefinitionList
	SelectionSet             = ast.SelectionSet
	Selection                = ast.Selection
	Field                    = ast.Field
	InlineFragment           = ast.InlineFragment
	FragmentDefinition       = ast.FragmentDefinition
	FragmentDefinitionList   = ast.FragmentDefinitionList
	FragmentSpread           = ast.FragmentSpread
	Directive                = ast.Directive
	DirectiveList            = ast.DirectiveList
	ArgumentList             = ast.ArgumentList
	Argument                 = ast.Argument
	Value                    = ast.Value
	Type                     = ast.Type
	Position                 = ast.Position
	Error                    = gqlerror.Error
	ErrorList                = gqlerror.List
	ErrorLocation            = gqlerror.Location
	DefinitionKind           = ast.DefinitionKind
	Operation                = ast.Operation
	ValueKind                = ast.ValueKind
	FieldDefinition          = ast.FieldDefinition
	ArgumentDefinitionList   = ast.ArgumentDefinitionList
	Definition               = ast.Definition
	DirectiveDefinition      = ast.DirectiveDefinition
	EnumValueDefinition      = ast.EnumValueDefinition
	DirectiveDefinitionList  = ast.DirectiveDefinitionList
	SchemaDefinition         = ast.SchemaDefinition
	OperationTypeDefinition  = ast.OperationTypeDefinition
	ArgumentDefinition       = ast.ArgumentDefinition
	FieldList                = ast.FieldList
	EnumValueList            = ast.EnumValueList
	DefinitionList           = ast.DefinitionList
	SchemaDefinitionList     = ast.SchemaDefinitionList
	OperationTypeDefinitions = ast.OperationTypeDefinitionList
)

const (
	Query        Operation = ast.Query
	Mutation     Operation = ast.Mutation
	Subscription Operation = ast.Subscription

	Object      DefinitionKind = ast.Object
	Interface   DefinitionKind = ast.Interface
	Union       DefinitionKind = ast.Union
	Scalar      DefinitionKind = ast.Scalar
	Enum        DefinitionKind = ast.Enum
	InputObject DefinitionKind = ast.InputObject

	Variable     ValueKind = ast.Variable
	IntValue     ValueKind = ast.IntValue
	FloatValue   ValueKind = ast.FloatValue
	StringValue  ValueKind = ast.StringValue
	BlockValue   ValueKind = ast.BlockValue
	BooleanValue ValueKind = ast.BooleanValue
	NullValue    ValueKind = ast.NullValue
	EnumValue    ValueKind = ast.EnumValue
	ListValue    ValueKind = ast.ListValue
	ObjectValue  ValueKind = ast.ObjectValue
)
