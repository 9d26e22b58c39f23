// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package mathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, 3, Max(1, 3))
	assert.Equal(t, 1, Min(1, 3))
}

func TestAbs(t *testing.T) {
	assert.Equal(t, 20, Abs(-20))
	assert.Equal(t, 20, Abs(20))
	assert.Equal(t, 0.5, Abs(-0.5))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-5, 0, 10))
	assert.Equal(t, 10, Clamp(50, 0, 10))
	assert.Equal(t, 7, Clamp(7, 0, 10))
}
