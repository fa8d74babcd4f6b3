package cc

import (
	"fmt"
	"strings"
)

// typeString spells ty as a type name, e.g. "int (*)(void)".
func typeString(ty *CType) string {
	return declString(ty, "")
}

// declString spells a declaration of decl with type ty. Declarators
// are built inside out: pointers go to the left of decl, arrays and
// parameter lists to the right.
func declString(ty *CType, decl string) string {
	for {
		if ty.Alias != nil {
			return joinDecl(qualifiers(ty)+ty.Alias.getText(), decl)
		}

		switch ty.Kind {
		case TY_PTR:
			star := "*"
			if ty.IsConst {
				star = "* const"
				if decl != "" {
					star += " "
				}
			}
			decl = star + decl

			if b := ty.Base; b.Alias == nil && (b.Kind == TY_ARRAY || b.Kind == TY_VLA || b.Kind == TY_FUNC) {
				decl = "(" + decl + ")"
			}
			ty = ty.Base
		case TY_ARRAY:
			if ty.ArrayLength < 0 {
				decl += "[]"
			} else {
				decl += fmt.Sprintf("[%d]", ty.ArrayLength)
			}
			ty = ty.Base
		case TY_VLA:
			decl += "[*]"
			ty = ty.Base
		case TY_FUNC:
			decl += "(" + paramsString(ty, nil) + ")"
			ty = ty.ReturnType
		default:
			return joinDecl(baseString(ty), decl)
		}
	}
}

func joinDecl(base, decl string) string {
	switch {
	case decl == "":
		return base
	case strings.HasPrefix(decl, "["):
		return base + decl
	default:
		return base + " " + decl
	}
}

func qualifiers(ty *CType) string {
	var q string
	if ty.IsAtomic {
		q += "_Atomic "
	}
	if ty.IsConst {
		q += "const "
	}
	return q
}

// paramsString spells the parameter list of a function type. names, if
// given, supplies a name for each parameter.
func paramsString(ty *CType, names []string) string {
	var parts []string
	i := 0
	for param := ty.ParamList; param != nil; param = param.ParamNext {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		parts = append(parts, declString(param.Ty, name))
		i++
	}

	if ty.IsVariadic {
		parts = append(parts, "...")
	}
	if len(parts) == 0 && !ty.IsOldStyle {
		return "void"
	}
	return strings.Join(parts, ", ")
}

// funcHead spells the head of a definition of a function named name
// with type ty. Parameters are given placeholder names since a
// definition needs them.
func funcHead(ty *CType, name string) string {
	var names []string
	for param := ty.ParamList; param != nil; param = param.ParamNext {
		names = append(names, fmt.Sprintf("__arg%d", len(names)))
	}
	return declString(ty.ReturnType, name+"("+paramsString(ty, names)+")")
}

func baseString(ty *CType) string {
	var s string

	switch ty.Kind {
	case TY_VOID:
		s = "void"
	case TY_BOOL:
		s = "_Bool"
	case TY_PCHAR:
		s = "char"
	case TY_CHAR:
		s = "signed char"
		if ty.IsUnsigned {
			s = "unsigned char"
		}
	case TY_SHORT:
		s = "short"
	case TY_INT:
		s = "int"
	case TY_LONG:
		s = "long"
	case TY_LLONG:
		s = "long long"
	case TY_FLOAT:
		s = "float"
	case TY_DOUBLE:
		s = "double"
	case TY_LDOUBLE:
		s = "long double"
	case TY_ENUM, TY_STRUCT, TY_UNION:
		kw := map[CTypeKind]string{TY_ENUM: "enum", TY_STRUCT: "struct", TY_UNION: "union"}[ty.Kind]
		switch {
		case ty.Tag != nil:
			s = kw + " " + ty.Tag.getText()
		case ty.Def.valid():
			s = spanText(ty.Def)
		default:
			s = kw
		}
	}

	if ty.IsUnsigned && ty.Kind != TY_CHAR && ty.isInteger() && ty.Kind != TY_ENUM && ty.Kind != TY_BOOL {
		s = "unsigned " + s
	}
	return qualifiers(ty) + s
}
