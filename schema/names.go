package schema

import "strings"

// Grammar keys used inside derived input shapes. Dollar-prefixed so they
// can never collide with declared property or relationship names.
const (
	KeyMatch    = "$MATCH"
	KeySet      = "$SET"
	KeyDelete   = "$DELETE"
	KeyAdd      = "$ADD"
	KeyUpdate   = "$UPDATE"
	KeyCreate   = "$CREATE"
	KeyNew      = "$NEW"
	KeyExisting = "$EXISTING"

	KeyForce = "force"
	KeyProps = "props"
	KeySrc   = "src"
	KeyDst   = "dst"
	KeyID    = "id"
)

// titleCase upper-cases the first rune of a relationship name so shape
// names read as one camel-cased word: Project + owner -> ProjectOwner.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func relPrefix(typeName, relName string) string {
	return typeName + titleCase(relName)
}

// Node shape names.
func NodeObjectName(t string) string              { return t }
func NodeQueryInputName(t string) string          { return t + "QueryInput" }
func NodeCreateMutationInputName(t string) string { return t + "CreateMutationInput" }
func NodeUpdateMutationInputName(t string) string { return t + "UpdateMutationInput" }
func NodeInputName(t string) string               { return t + "Input" }
func NodeUpdateInputName(t string) string         { return t + "UpdateInput" }
func NodeDeleteInputName(t string) string         { return t + "DeleteInput" }
func NodeDeleteMutationInputName(t string) string { return t + "DeleteMutationInput" }

// Relationship shape names.
func RelObjectName(t, r string) string              { return relPrefix(t, r) + "Rel" }
func RelPropsObjectName(t, r string) string         { return relPrefix(t, r) + "Props" }
func RelPropsInputName(t, r string) string          { return relPrefix(t, r) + "PropsInput" }
func RelNodesUnionName(t, r string) string          { return relPrefix(t, r) + "NodesUnion" }
func RelQueryInputName(t, r string) string          { return relPrefix(t, r) + "QueryInput" }
func RelCreateMutationInputName(t, r string) string { return relPrefix(t, r) + "CreateMutationInput" }
func RelChangeInputName(t, r string) string         { return relPrefix(t, r) + "ChangeInput" }
func RelUpdateMutationInputName(t, r string) string { return relPrefix(t, r) + "UpdateMutationInput" }
func RelCreateInputName(t, r string) string         { return relPrefix(t, r) + "CreateInput" }
func RelUpdateInputName(t, r string) string         { return relPrefix(t, r) + "UpdateInput" }
func RelDeleteInputName(t, r string) string         { return relPrefix(t, r) + "DeleteInput" }
func RelSrcQueryInputName(t, r string) string       { return relPrefix(t, r) + "SrcQueryInput" }
func RelDstQueryInputName(t, r string) string       { return relPrefix(t, r) + "DstQueryInput" }
func RelSrcUpdateMutationInputName(t, r string) string {
	return relPrefix(t, r) + "SrcUpdateMutationInput"
}
func RelDstUpdateMutationInputName(t, r string) string {
	return relPrefix(t, r) + "DstUpdateMutationInput"
}
func RelSrcDeleteMutationInputName(t, r string) string {
	return relPrefix(t, r) + "SrcDeleteMutationInput"
}
func RelDstDeleteMutationInputName(t, r string) string {
	return relPrefix(t, r) + "DstDeleteMutationInput"
}
func RelNodesMutationInputUnionName(t, r string) string {
	return relPrefix(t, r) + "NodesMutationInputUnion"
}

// Operation names.
func NodeReadOpName(t string) string   { return t }
func NodeCreateOpName(t string) string { return t + "Create" }
func NodeUpdateOpName(t string) string { return t + "Update" }
func NodeDeleteOpName(t string) string { return t + "Delete" }
func RelReadOpName(t, r string) string   { return relPrefix(t, r) }
func RelCreateOpName(t, r string) string { return relPrefix(t, r) + "Create" }
func RelUpdateOpName(t, r string) string { return relPrefix(t, r) + "Update" }
func RelDeleteOpName(t, r string) string { return relPrefix(t, r) + "Delete" }
