package handlers

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterValidations(t *testing.T) {
	registerValidations()
	registerValidations()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)

	assert.Error(t, v.Var("  \t", "notblank"))
	assert.NoError(t, v.Var("Kindred", "notblank"))

	type titled struct {
		Title string `json:"title" binding:"required"`
	}
	err := binding.Validator.ValidateStruct(titled{})
	require.Error(t, err)
	assert.Equal(t, "title is required", bindingMessage(err))
}
