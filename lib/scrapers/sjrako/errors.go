package sjrako

import "fmt"

var ErrInvalidDate = fmt.Errorf("invalid calendar date")

// ErrAuthenticationFailed means the portal rejected the credentials.
var ErrAuthenticationFailed = fmt.Errorf("login was not successful, check the credentials")

// ErrAuthenticationRequired means the operation needs a logged-in session.
var ErrAuthenticationRequired = fmt.Errorf("a logged-in session is required")

var ErrAlreadyAuthenticated = fmt.Errorf("a session is already active, log out first")

// ErrUnexpectedPage means the portal page did not have the expected
// structure. Not retryable without a code change.
var ErrUnexpectedPage = fmt.Errorf("the portal page does not have the expected structure")

var ErrLunchNotFound = fmt.Errorf("the menu has no lunch with that number")

var ErrNotChangeable = fmt.Errorf("the order for this date can no longer be changed")

var ErrCorruptData = fmt.Errorf("corrupt lunch menu data")
