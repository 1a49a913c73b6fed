package registry

import (
	"testing"

	"github.com/golang/mock/gomock"
)

// dispatchWelcomeEmail is a stand-in for a hosting service handler that
// depends on Registry rather than this package's singleton functions, so it
// can be tested without touching real process-wide state.
func dispatchWelcomeEmail(r Registry, userID string) {
	r.RunWith("email", func() {
		_ = userID // would render and send the email
	})
}

func TestDispatchWelcomeEmailUsesNamedPool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mock := NewMockRegistry(ctrl)
	mock.EXPECT().RunWith("email", gomock.Any())

	dispatchWelcomeEmail(mock, "user-123")
}
