package email

import (
	"context"
	"fmt"

	"github.com/rapidlab/labbooking/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	fmt.Printf("send email to %s about %s for %s at %s on %s %s\n",
		event.Email, event.Type, event.TestName, event.LabName, event.AppointmentDate, event.AppointmentTime)
	return nil
}
