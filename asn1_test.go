// Copyright 2025 Kim Wittenburg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asn1rt

import (
	"fmt"
	"testing"
)

func ExampleTag_String() {
	t1 := Tag{ClassApplication, 17}
	t2 := Tag{ClassContextSpecific, 8}
	t3 := Tag{ClassUniversal, 2}
	fmt.Println(t1.String())
	fmt.Println(t2.String())
	fmt.Println(t3.String())
	// Output:
	// [APPLICATION 17]
	// [8]
	// [UNIVERSAL 2]
}

func TestTag_Less(t *testing.T) {
	tests := map[string]struct {
		t, u Tag
		want bool
	}{
		"SameClass":      {Tag{ClassContextSpecific, 1}, Tag{ClassContextSpecific, 2}, true},
		"Equal":          {Tag{ClassContextSpecific, 2}, Tag{ClassContextSpecific, 2}, false},
		"UniversalFirst": {Tag{ClassUniversal, 30}, Tag{ClassApplication, 0}, true},
		"PrivateLast":    {Tag{ClassPrivate, 0}, Tag{ClassContextSpecific, 99}, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.t.Less(tt.u); got != tt.want {
				t.Errorf("%v.Less(%v) = %v, want %v", tt.t, tt.u, got, tt.want)
			}
		})
	}
}
