package backend

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteFailure(t *testing.T) {
	assert := assert.New(t)

	cause := errors.New("connection refused")
	err := Fail("list posts", cause)

	var rf *RemoteFailure
	assert.True(errors.As(err, &rf))
	assert.ErrorIs(err, cause)
	assert.Equal("list posts: connection refused", err.Error())
	assert.Equal("connection refused", Message(err))

	assert.Nil(Fail("noop", nil))
}

func TestFail_keepsExistingFailure(t *testing.T) {
	assert := assert.New(t)

	inner := &RemoteFailure{Op: "sign in", Status: 400, Message: "Invalid login credentials"}
	err := Fail("login", fmt.Errorf("wrapped: %w", inner))

	var rf *RemoteFailure
	assert.True(errors.As(err, &rf))
	assert.Equal("sign in", rf.Op)
	assert.Equal("sign in: Invalid login credentials (status 400)", rf.Error())
	assert.Equal("Invalid login credentials", Message(err))
}

func TestMessage_plainError(t *testing.T) {
	assert.Equal(t, "boom", Message(errors.New("boom")))
}
