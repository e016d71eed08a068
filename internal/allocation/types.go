package allocation

// The statutory fund layout of a recovery certificate: three sections, each
// with its own sub-accounts. Section 7A (assessed dues) splits the A/c 1
// figure into employee and employer shares; 7Q (interest) and 14B (damages)
// carry a plain A/c 1 bucket instead.

// Section7A holds the six 7A sub-account amounts.
type Section7A struct {
	EE1  float64 `json:"ee1"`
	ER1  float64 `json:"er1"`
	Ac10 float64 `json:"ac10"`
	Ac21 float64 `json:"ac21"`
	Ac2  float64 `json:"ac2"`
	Ac22 float64 `json:"ac22"`
}

// Sum returns the section total across all six sub-accounts.
func (s Section7A) Sum() float64 {
	return s.EE1 + s.ER1 + s.Ac10 + s.Ac21 + s.Ac2 + s.Ac22
}

// Section5 holds the five sub-account amounts shared by 7Q and 14B.
type Section5 struct {
	Ac1  float64 `json:"ac1"`
	Ac10 float64 `json:"ac10"`
	Ac21 float64 `json:"ac21"`
	Ac2  float64 `json:"ac2"`
	Ac22 float64 `json:"ac22"`
}

// Sum returns the section total across all five sub-accounts.
func (s Section5) Sum() float64 {
	return s.Ac1 + s.Ac10 + s.Ac21 + s.Ac2 + s.Ac22
}

// Amounts is one figure (demand, recovered or outstanding) for every
// sub-account across the three statutory sections.
type Amounts struct {
	S7A  Section7A `json:"s7a"`
	S7Q  Section5  `json:"s7q"`
	S14B Section5  `json:"s14b"`
}

// Total returns the grand total across all sixteen sub-accounts.
func (a Amounts) Total() float64 {
	return a.S7A.Sum() + a.S7Q.Sum() + a.S14B.Sum()
}

// HasNegative reports whether any sub-account carries a negative figure.
func (a Amounts) HasNegative() bool {
	for _, v := range [16]float64{
		a.S7A.EE1, a.S7A.ER1, a.S7A.Ac10, a.S7A.Ac21, a.S7A.Ac2, a.S7A.Ac22,
		a.S7Q.Ac1, a.S7Q.Ac10, a.S7Q.Ac21, a.S7Q.Ac2, a.S7Q.Ac22,
		a.S14B.Ac1, a.S14B.Ac10, a.S14B.Ac21, a.S14B.Ac2, a.S14B.Ac22,
	} {
		if v < 0 {
			return true
		}
	}
	return false
}

// Add returns the element-wise sum of two amount sets.
func Add(a, b Amounts) Amounts {
	return Amounts{
		S7A: Section7A{
			EE1:  a.S7A.EE1 + b.S7A.EE1,
			ER1:  a.S7A.ER1 + b.S7A.ER1,
			Ac10: a.S7A.Ac10 + b.S7A.Ac10,
			Ac21: a.S7A.Ac21 + b.S7A.Ac21,
			Ac2:  a.S7A.Ac2 + b.S7A.Ac2,
			Ac22: a.S7A.Ac22 + b.S7A.Ac22,
		},
		S7Q:  addSection5(a.S7Q, b.S7Q),
		S14B: addSection5(a.S14B, b.S14B),
	}
}

// Sub returns a minus b, element-wise. Negative results are preserved.
func Sub(a, b Amounts) Amounts {
	return Amounts{
		S7A: Section7A{
			EE1:  a.S7A.EE1 - b.S7A.EE1,
			ER1:  a.S7A.ER1 - b.S7A.ER1,
			Ac10: a.S7A.Ac10 - b.S7A.Ac10,
			Ac21: a.S7A.Ac21 - b.S7A.Ac21,
			Ac2:  a.S7A.Ac2 - b.S7A.Ac2,
			Ac22: a.S7A.Ac22 - b.S7A.Ac22,
		},
		S7Q:  subSection5(a.S7Q, b.S7Q),
		S14B: subSection5(a.S14B, b.S14B),
	}
}

func addSection5(a, b Section5) Section5 {
	return Section5{
		Ac1:  a.Ac1 + b.Ac1,
		Ac10: a.Ac10 + b.Ac10,
		Ac21: a.Ac21 + b.Ac21,
		Ac2:  a.Ac2 + b.Ac2,
		Ac22: a.Ac22 + b.Ac22,
	}
}

func subSection5(a, b Section5) Section5 {
	return Section5{
		Ac1:  a.Ac1 - b.Ac1,
		Ac10: a.Ac10 - b.Ac10,
		Ac21: a.Ac21 - b.Ac21,
		Ac2:  a.Ac2 - b.Ac2,
		Ac22: a.Ac22 - b.Ac22,
	}
}

// Breakdown is the result of allocating one payment: the per-sub-account
// amounts plus the three section subtotals and the allocated total.
type Breakdown struct {
	Amounts
	Total7A  float64 `json:"total_7a"`
	Total7Q  float64 `json:"total_7q"`
	Total14B float64 `json:"total_14b"`
	Total    float64 `json:"total"`
}
