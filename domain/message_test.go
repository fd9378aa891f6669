package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "market-chat/errors"
)

func TestStatus_Advances_Forward_Only(t *testing.T) {
	req := require.New(t)

	message := Message{Status: StatusSent}

	// Sent may advance to seen
	req.NoError(message.AdvanceTo(StatusSeen))
	req.Equal(StatusSeen, message.Status)

	// Seen never regresses
	err := message.AdvanceTo(StatusSent)
	req.ErrorIs(err, errs.ErrStatusRegression)
	req.Equal(StatusSeen, message.Status)
}

func TestStatus_Advance_To_Same_Status_Is_Idempotent(t *testing.T) {
	req := require.New(t)

	message := Message{Status: StatusSeen}

	req.NoError(message.AdvanceTo(StatusSeen))
	req.Equal(StatusSeen, message.Status)
}

func TestStatus_Valid(t *testing.T) {
	req := require.New(t)

	req.True(StatusSent.Valid())
	req.True(StatusDelivered.Valid())
	req.True(StatusSeen.Valid())
	req.False(Status("read").Valid())
}

func TestPairKey_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	req.Equal(PairKey("alice", "bob"), PairKey("bob", "alice"))
	req.NotEqual(PairKey("alice", "bob"), PairKey("alice", "carol"))
}

func TestValidate_SendMessageCommand(t *testing.T) {
	req := require.New(t)

	valid := SendMessageCommand{
		RoomID: "c1",
		Message: WireMessage{
			SenderID:   "u1",
			ReceiverID: "u2",
			Content:    "hello",
			Timestamp:  time.Now(),
		},
	}
	req.NoError(Validate(valid))

	missingReceiver := valid
	missingReceiver.Message.ReceiverID = ""
	req.ErrorIs(Validate(missingReceiver), errs.ErrValidation)

	missingRoom := valid
	missingRoom.RoomID = ""
	req.ErrorIs(Validate(missingRoom), errs.ErrValidation)
}
