// Package pactfixture holds the contract agreed between the user consumer and
// the user provider. Both sides test against the same definition.
package pactfixture

import (
	"net/http"

	"user-contract-service/internal/contract"
)

const (
	ConsumerName = "UserConsumer"
	ProviderName = "UserProvider"

	StateUserOneExists = "user with id 1 exists"
	Description        = "a request to get user by id"
)

// UserOneBody is the response body the consumer expects for user 1.
const UserOneBody = `{
  "id": 1,
  "name": "John Doe",
  "email": "john.doe@example.com"
}`

// NewUserPact builds the user contract.
func NewUserPact() *contract.Pact {
	p := contract.NewPact(ConsumerName, ProviderName)
	p.AddInteraction().
		Given(StateUserOneExists).
		UponReceiving(Description).
		WithRequest(http.MethodGet, "/users/1").
		WillRespondWith(http.StatusOK).
		WithHeader("Content-Type", "application/json").
		WithJSONBody(UserOneBody)
	return p
}
