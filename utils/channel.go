package utils

import (
	"fmt"

	"accelerator/models"
)

// OutreachMessage is the channel-agnostic payload for one outbound touch.
type OutreachMessage struct {
	Channel string
	To      string // email address
	Phone   string // voice channel
	Subject string
	Body    string
}

// ChannelSender delivers one message and returns the provider delivery id.
// Implemented by the SMTP mailer and the voice dispatcher; the outreach
// worker treats both as black boxes.
type ChannelSender interface {
	Send(msg OutreachMessage) (string, error)
}

// ChannelDispatcher routes messages to the sender registered for their channel.
type ChannelDispatcher struct {
	senders map[string]ChannelSender
}

func NewChannelDispatcher() *ChannelDispatcher {
	return &ChannelDispatcher{senders: make(map[string]ChannelSender)}
}

// Register binds a sender to a channel name, replacing any previous binding.
func (d *ChannelDispatcher) Register(channel string, sender ChannelSender) {
	d.senders[channel] = sender
}

func (d *ChannelDispatcher) Send(msg OutreachMessage) (string, error) {
	sender, ok := d.senders[msg.Channel]
	if !ok {
		return "", fmt.Errorf("no sender registered for channel %q", msg.Channel)
	}
	return sender.Send(msg)
}

// MessageForLead assembles the outbound payload for a step already rendered
// through the prompt templater.
func MessageForLead(lead *models.Lead, channel, subject, body string) OutreachMessage {
	return OutreachMessage{
		Channel: channel,
		To:      lead.Email,
		Phone:   lead.Phone,
		Subject: subject,
		Body:    body,
	}
}
