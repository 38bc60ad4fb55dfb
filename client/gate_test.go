package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide_Exhaustive(t *testing.T) {
	t.Parallel()
	bools := []bool{false, true}
	for _, loading := range bools {
		for _, authed := range bools {
			for _, completed := range bools {
				for _, major := range []string{"", "Computer Science"} {
					for _, requires := range bools {
						in := GateInput{Loading: loading, IsAuthenticated: authed, ProfileCompleted: completed, Major: major, RequiresProfile: requires}
						got := Decide(in)
						assert.Equal(t, got, Decide(in), "decision must be stable")

						var want Route
						switch {
						case loading:
							want = Wait
						case !authed:
							want = Login
						case requires && (!completed || major == ""):
							want = Setup
						default:
							want = Requested
						}
						assert.Equal(t, want, got, "%+v", in)
					}
				}
			}
		}
	}
}

func TestDecideAuthRoute(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Wait, DecideAuthRoute(GateInput{Loading: true}))
	assert.Equal(t, Requested, DecideAuthRoute(GateInput{}))
	assert.Equal(t, Setup, DecideAuthRoute(GateInput{IsAuthenticated: true, ProfileCompleted: true}))
	assert.Equal(t, Dashboard, DecideAuthRoute(GateInput{IsAuthenticated: true, ProfileCompleted: true, Major: "Math"}))
	assert.Equal(t, "setup", Setup.String())
}
