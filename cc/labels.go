package cc

func findLabel(list *AstNode, name string) *AstNode {
	for l := list; l != nil; l = l.GotoNext {
		if l.Label == name {
			return l
		}
	}
	return nil
}

func findInnerLabel(labels []*AstNode, name string) *AstNode {
	for _, l := range labels {
		if l.Label == name {
			return l
		}
	}
	return nil
}

// resolveGotoLabels matches gotos and labels once a function body is
// complete. Every unnamed function is its own label scope: a jump may not
// enter or leave it. Jumps that cannot be resolved locally are passed on
// to the enclosing function, which knows all of its own labels only at
// its end.
func (p *parser) resolveGotoLabels(c *funcContext) {
	var pending []*AstNode

	for g := c.gotos; g != nil; g = g.GotoNext {
		if findLabel(c.labels, g.Label) != nil {
			continue
		}
		if l := findInnerLabel(c.innerLabels, g.Label); l != nil {
			p.labelScopeViolation(g, l)
			continue
		}
		pending = append(pending, g)
	}

	for _, g := range c.crossGotos {
		if l := findLabel(c.labels, g.Label); l != nil {
			p.labelScopeViolation(g, l)
			continue
		}
		if l := findInnerLabel(c.innerLabels, g.Label); l != nil {
			p.labelScopeViolation(g, l)
			continue
		}
		pending = append(pending, g)
	}

	if c.outer == nil {
		for _, g := range pending {
			errorTok(g.Tok, "use of undeclared label '%s'", g.Label)
		}
		return
	}

	outer := c.outer
	outer.crossGotos = append(outer.crossGotos, pending...)
	for l := c.labels; l != nil; l = l.GotoNext {
		outer.innerLabels = append(outer.innerLabels, l)
	}
	outer.innerLabels = append(outer.innerLabels, c.innerLabels...)
}

func (p *parser) labelScopeViolation(g, l *AstNode) {
	what := "goto"
	if g.Kind == ND_LABEL_VAL {
		what = "address of label"
	}
	p.report(newDiagnostic(SeverityError, ErrLabelScope, CodeLabelScope, g.Tok,
		"%s '%s' crosses the boundary of an unnamed function", what, g.Label).
		note(l.Tok, "label '%s' defined here", l.Label))
}
