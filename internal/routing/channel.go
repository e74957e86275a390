package routing

import (
	"fmt"

	"github.com/veilnet/veilnet/internal/logger"
	"github.com/veilnet/veilnet/internal/metrics"
	"github.com/veilnet/veilnet/pkg/wire"
)

// HandleChannelJoin adds a user to the node's single public channel,
// restated from public_channel_add.rs's membership bookkeeping (the
// reference's separate PUBLIC_CHANNEL_ADD-creates-the-channel step is
// out of scope here: this node has exactly one public channel, created
// implicitly, matching spec.md's single-channel model).
func (r *Router) HandleChannelJoin(env *wire.Envelope) error {
	if !env.Type.Equal(wire.PublicChannelJoin) {
		return fmt.Errorf("routing: expected PUBLIC_CHANNEL_JOIN, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.ChannelJoinPayload](env)
	if err != nil {
		return fmt.Errorf("routing: extract PUBLIC_CHANNEL_JOIN payload: %w", err)
	}
	r.mesh.Channel().Join(payload.UserID)
	r.log.Info("channel join", logger.String("user_id", payload.UserID))
	return nil
}

// HandleChannelLeave removes a user from the public channel's member set.
func (r *Router) HandleChannelLeave(env *wire.Envelope) error {
	if !env.Type.Equal(wire.PublicChannelLeave) {
		return fmt.Errorf("routing: expected PUBLIC_CHANNEL_LEAVE, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.ChannelLeavePayload](env)
	if err != nil {
		return fmt.Errorf("routing: extract PUBLIC_CHANNEL_LEAVE payload: %w", err)
	}
	r.mesh.Channel().Leave(payload.UserID)
	r.log.Info("channel leave", logger.String("user_id", payload.UserID))
	return nil
}

// HandleChannelMessage restates handle_public_channel_message: only a
// current member may post, the message is appended to the channel's
// bounded ring, and it fans out to every other member that is a
// LocalUsers connection on this node.
//
// Per spec.md's explicit Non-goal, cross-node fan-out (delivering to
// members whose connection lives on a different node) stays out of
// scope for v1: nothing about the public channel is sent to peers, so
// members whose connection lives on another node do not receive the
// message.
func (r *Router) HandleChannelMessage(env *wire.Envelope) error {
	if !env.Type.Equal(wire.PublicChannelMessage) {
		return fmt.Errorf("routing: expected PUBLIC_CHANNEL_MESSAGE, got %s", env.Type)
	}
	payload, err := wire.ExtractPayload[wire.ChannelMessagePayload](env)
	if err != nil {
		metrics.RoutingErrors.WithLabelValues("extract").Inc()
		return fmt.Errorf("routing: extract PUBLIC_CHANNEL_MESSAGE payload: %w", err)
	}

	ch := r.mesh.Channel()
	if !ch.IsMember(payload.From) {
		metrics.RoutingErrors.WithLabelValues("not_member").Inc()
		r.log.Warn("channel message rejected: sender not a member",
			logger.String("user_id", payload.From), logger.String("channel", payload.Channel))
		return fmt.Errorf("routing: %s is not a member of channel %s", payload.From, payload.Channel)
	}

	ch.PostMessage(payload.From, payload.Ciphertext, env.Ts)

	delivered := 0
	for _, member := range ch.Members() {
		if member == payload.From {
			continue
		}
		if _, ok := r.mesh.LocalUser(member); !ok {
			continue // not connected to this node; v1 does no cross-node fan-out
		}
		if err := r.mesh.Enqueue(member, env); err != nil {
			r.log.Warn("channel fan-out: enqueue failed",
				logger.String("user_id", member), logger.Error(err))
			continue
		}
		delivered++
	}

	metrics.EnvelopesRouted.WithLabelValues(env.Type.String(), "delivered_local").Inc()
	r.log.Info("routed channel message",
		logger.String("channel", payload.Channel), logger.Int("delivered", delivered))
	return nil
}
