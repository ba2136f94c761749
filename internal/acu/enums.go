package acu

import "fmt"

// Enum-valued attributes are matched case-sensitively against closed token
// tables. An unrecognized token is a hard parse failure; the tool is
// documented to emit a literal "unknown" sentinel in a few places, which
// maps to the explicit Unknown variant instead of failing.

// StreamType classifies a stream.
type StreamType string

const (
	StreamUnknown     StreamType = "unknown"
	StreamNormal      StreamType = "normal"
	StreamDynamic     StreamType = "dynamic"
	StreamWorkspace   StreamType = "workspace"
	StreamSnapshot    StreamType = "snapshot"
	StreamPassthrough StreamType = "passthrough"
	StreamGated       StreamType = "gated"
	StreamStaging     StreamType = "staging"
)

var streamTypes = map[string]StreamType{
	"unknown":     StreamUnknown,
	"normal":      StreamNormal,
	"dynamic":     StreamDynamic,
	"workspace":   StreamWorkspace,
	"snapshot":    StreamSnapshot,
	"passthrough": StreamPassthrough,
	"gated":       StreamGated,
	"staging":     StreamStaging,
}

func parseStreamType(tok string) (StreamType, error) {
	if t, ok := streamTypes[tok]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unrecognized stream type %q", tok)
}

// CaseSensitivity is a depot's file-name case handling mode.
type CaseSensitivity string

const (
	CaseSensitive   CaseSensitivity = "sensitive"
	CaseInsensitive CaseSensitivity = "insensitive"
)

var caseModes = map[string]CaseSensitivity{
	"sensitive":   CaseSensitive,
	"insensitive": CaseInsensitive,
}

func parseCaseSensitivity(tok string) (CaseSensitivity, error) {
	if c, ok := caseModes[tok]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unrecognized case sensitivity %q", tok)
}

// LockKind says which direction of promotion a stream lock restricts.
type LockKind string

const (
	LockAll  LockKind = "all"
	LockTo   LockKind = "to"
	LockFrom LockKind = "from"
)

var lockKinds = map[string]LockKind{
	"all":  LockAll,
	"to":   LockTo,
	"from": LockFrom,
}

func parseLockKind(tok string) (LockKind, error) {
	if k, ok := lockKinds[tok]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unrecognized lock kind %q", tok)
}

// PrincipalType distinguishes the identity kinds AccuRev attaches to locks
// and permissions.
type PrincipalType string

const (
	PrincipalUser    PrincipalType = "user"
	PrincipalGroup   PrincipalType = "group"
	PrincipalBuiltin PrincipalType = "builtin"
)

var principalTypes = map[string]PrincipalType{
	"user":    PrincipalUser,
	"group":   PrincipalGroup,
	"builtin": PrincipalBuiltin,
}

func parsePrincipalType(tok string) (PrincipalType, error) {
	if p, ok := principalTypes[tok]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unrecognized principal type %q", tok)
}

// PermissionKind says what a permission entry applies to.
type PermissionKind string

const (
	PermissionDepot  PermissionKind = "depot"
	PermissionStream PermissionKind = "stream"
)

var permissionKinds = map[string]PermissionKind{
	"depot":  PermissionDepot,
	"stream": PermissionStream,
}

func parsePermissionKind(tok string) (PermissionKind, error) {
	if k, ok := permissionKinds[tok]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unrecognized permission kind %q", tok)
}

// PermissionRights is the rights value of a permission entry.
type PermissionRights string

const (
	RightsAll  PermissionRights = "all"
	RightsNone PermissionRights = "none"
)

var permissionRights = map[string]PermissionRights{
	"all":  RightsAll,
	"none": RightsNone,
}

func parsePermissionRights(tok string) (PermissionRights, error) {
	if r, ok := permissionRights[tok]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unrecognized rights %q", tok)
}

// RuleKind classifies an include/exclude rule.
type RuleKind string

const (
	RuleInclude        RuleKind = "incl"
	RuleExclude        RuleKind = "excl"
	RuleIncludeDirOnly RuleKind = "incldo"
	RuleClear          RuleKind = "clear"
)

var ruleKinds = map[string]RuleKind{
	"incl":   RuleInclude,
	"excl":   RuleExclude,
	"incldo": RuleIncludeDirOnly,
	"clear":  RuleClear,
}

func parseRuleKind(tok string) (RuleKind, error) {
	if k, ok := ruleKinds[tok]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unrecognized rule kind %q", tok)
}

// ElementType is the AccuRev element type of a version-controlled object.
type ElementType string

const (
	ElemUnknown ElementType = "unknown"
	ElemDir     ElementType = "dir"
	ElemText    ElementType = "text"
	ElemBinary  ElementType = "binary"
	ElemPText   ElementType = "ptext"
	ElemELink   ElementType = "elink"
	ElemSLink   ElementType = "slink"
)

var elementTypes = map[string]ElementType{
	"unknown": ElemUnknown,
	"dir":     ElemDir,
	"text":    ElemText,
	"binary":  ElemBinary,
	"ptext":   ElemPText,
	"elink":   ElemELink,
	"slink":   ElemSLink,
}

func parseElementType(tok string) (ElementType, error) {
	if t, ok := elementTypes[tok]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unrecognized element type %q", tok)
}
