package syntax

// Node kinds produced by the tree-sitter Rust grammar that the rewrite
// pipeline looks at. Anything else is handled generically.
const (
	KindSourceFile       = "source_file"
	KindBlock            = "block"
	KindUnsafeBlock      = "unsafe_block"
	KindUnsafeKeyword    = "unsafe"
	KindExprStatement    = "expression_statement"
	KindEmptyStatement   = "empty_statement"
	KindLet              = "let_declaration"
	KindMutable          = "mutable_specifier"
	KindAssignment       = "assignment_expression"
	KindCall             = "call_expression"
	KindArguments        = "arguments"
	KindFieldExpr        = "field_expression"
	KindFieldIdent       = "field_identifier"
	KindScopedIdent      = "scoped_identifier"
	KindGenericFunction  = "generic_function"
	KindTypeArguments    = "type_arguments"
	KindIdentifier       = "identifier"
	KindSelf             = "self"
	KindIndexExpr        = "index_expression"
	KindRangeExpr        = "range_expression"
	KindReferenceExpr    = "reference_expression"
	KindTypeCast         = "type_cast_expression"
	KindReferenceType    = "reference_type"
	KindPrimitiveType    = "primitive_type"
	KindLifetime         = "lifetime"
	KindMacroInvocation  = "macro_invocation"
	KindAttributeItem    = "attribute_item"
	KindLineComment      = "line_comment"
	KindBlockComment     = "block_comment"
	KindFunctionItem     = "function_item"
	KindError            = "ERROR"
)

// IsComment reports whether kind is a line or block comment.
func IsComment(kind string) bool {
	return kind == KindLineComment || kind == KindBlockComment
}
