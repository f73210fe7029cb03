// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package schema

import (
	"encoding/hex"
	"math/big"

	"codello.dev/asn1rt"
)

// Value converts a TOML literal to a value of type d. The mapping is
//
//	BOOLEAN                 boolean
//	INTEGER                 integer or decimal string
//	ENUMERATED              item name or integer
//	REAL                    float or integer
//	NULL                    the string "NULL"
//	OCTET STRING            hexadecimal string
//	BIT STRING              string of '0' and '1' characters
//	OBJECT IDENTIFIER       dotted string
//	RELATIVE-OID            dotted string
//	character strings       string
//
// Constructed types have no literal notation.
func Value(d *asn1rt.Descriptor, x any) (asn1rt.Value, error) {
	d = d.Underlying()
	switch d.Kind {
	case asn1rt.KindBoolean:
		if b, ok := x.(bool); ok {
			return asn1rt.Bool(b), nil
		}
	case asn1rt.KindInteger:
		var n *big.Int
		switch x := x.(type) {
		case int64:
			n = big.NewInt(x)
		case string:
			var ok bool
			if n, ok = new(big.Int).SetString(x, 10); !ok {
				return nil, literalError(d, x)
			}
			if d.Flags&asn1rt.FlagLargeInteger == 0 && !n.IsInt64() {
				return nil, asn1rt.Errorf(asn1rt.ErrConstraint, "%s: value %s out of range", d.Label(), n)
			}
		default:
			return nil, literalError(d, x)
		}
		v := asn1rt.IntegerValue(d, n)
		if err := asn1rt.CheckInteger(d, v); err != nil {
			return nil, err
		}
		return v, nil
	case asn1rt.KindEnumerated:
		switch x := x.(type) {
		case string:
			if it, ok := d.ItemByName(x); ok {
				return asn1rt.Enumerated(it.Value), nil
			}
			return nil, asn1rt.Errorf(asn1rt.ErrUnknownSelector, "%s: unknown enumeration item %q", d.Label(), x)
		case int64:
			if err := asn1rt.CheckEnumerated(d, asn1rt.Enumerated(x)); err != nil {
				return nil, err
			}
			return asn1rt.Enumerated(x), nil
		}
	case asn1rt.KindReal:
		switch x := x.(type) {
		case float64:
			return asn1rt.Real(x), nil
		case int64:
			return asn1rt.Real(x), nil
		}
	case asn1rt.KindNull:
		if x == "NULL" {
			return asn1rt.Null{}, nil
		}
	case asn1rt.KindOctetString:
		if s, ok := x.(string); ok {
			b, err := hex.DecodeString(s)
			if err != nil {
				return nil, literalError(d, x)
			}
			if err = asn1rt.CheckSize(d, len(b)); err != nil {
				return nil, err
			}
			return asn1rt.OctetString(b), nil
		}
	case asn1rt.KindBitString:
		if s, ok := x.(string); ok {
			b, ok := asn1rt.ParseBits(s)
			if !ok {
				return nil, literalError(d, x)
			}
			if err := asn1rt.CheckSize(d, b.BitLength); err != nil {
				return nil, err
			}
			return b, nil
		}
	case asn1rt.KindObjectIdentifier:
		if s, ok := x.(string); ok {
			arcs, ok := asn1rt.ParseArcs(s)
			if !ok || !asn1rt.ObjectIdentifier(arcs).IsValid() {
				return nil, literalError(d, x)
			}
			return asn1rt.ObjectIdentifier(arcs), nil
		}
	case asn1rt.KindRelativeOID:
		if s, ok := x.(string); ok {
			arcs, ok := asn1rt.ParseArcs(s)
			if !ok {
				return nil, literalError(d, x)
			}
			return asn1rt.RelativeOID(arcs), nil
		}
	case asn1rt.KindCharacterString:
		if s, ok := x.(string); ok {
			if err := asn1rt.CheckString(d, s); err != nil {
				return nil, err
			}
			return asn1rt.CharString(s), nil
		}
	default:
		return nil, asn1rt.Errorf(asn1rt.ErrUnsupported, "%s: no literal notation for %s", d.Label(), d.Kind)
	}
	return nil, literalError(d, x)
}

func literalError(d *asn1rt.Descriptor, x any) error {
	return asn1rt.Errorf(asn1rt.ErrConstraint, "%s: invalid literal %v", d.Label(), x)
}
