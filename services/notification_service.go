package services

import (
	"PinguinGuard/interfaces"
	"PinguinGuard/repositories"
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
)

// MessageSender часть FCM-клиента, которой пользуется сервис.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// Ключи переводов и тексты по умолчанию
var notificationTexts = map[string][2]string{
	interfaces.EventProposalCreated:   {"notification.proposal_created.title", "notification.proposal_created.body"},
	interfaces.EventProposalUpdated:   {"notification.proposal_updated.title", "notification.proposal_updated.body"},
	interfaces.EventProposalDisputed:  {"notification.proposal_disputed.title", "notification.proposal_disputed.body"},
	interfaces.EventEmergencyApplied:  {"notification.emergency_applied.title", "notification.emergency_applied.body"},
	interfaces.EventPermissionBlocked: {"notification.permission_blocked.title", "notification.permission_blocked.body"},
}

var defaultTexts = map[string]string{
	"notification.proposal_created.title":   "New change proposal",
	"notification.proposal_created.body":    "A guardian proposed a change to your child's settings. Please review it.",
	"notification.proposal_updated.title":   "Proposal updated",
	"notification.proposal_updated.body":    "A change proposal for your child has a new status.",
	"notification.proposal_disputed.title":  "Change disputed",
	"notification.proposal_disputed.body":   "A pending change was disputed. Family mediation is recommended.",
	"notification.emergency_applied.title":  "Safety setting tightened",
	"notification.emergency_applied.body":   "A guardian increased your child's protection. The change is already active.",
	"notification.permission_blocked.title": "Permission change blocked",
	"notification.permission_blocked.body":  "An attempt to reduce your permissions was blocked.",
}

// NotificationService сервис для работы с push-уведомлениями
type NotificationService struct {
	FCMClient      MessageSender
	TranslationSrv *TranslationService
	ParentRepo     repositories.ParentRepository
	ChildRepo      repositories.ChildRepository
	Directory      repositories.ChildDirectory
}

// NewNotificationService создает новый сервис уведомлений
func NewNotificationService(
	app *firebase.App,
	translationSrv *TranslationService,
	parentRepo repositories.ParentRepository,
	childRepo repositories.ChildRepository,
	directory repositories.ChildDirectory,
) (*NotificationService, error) {
	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error initializing FCM client: %w", err)
	}

	return &NotificationService{
		FCMClient:      client,
		TranslationSrv: translationSrv,
		ParentRepo:     parentRepo,
		ChildRepo:      childRepo,
		Directory:      directory,
	}, nil
}

// NotifyProposal рассылает push всем адресатам события. Ошибки только логируются.
func (s *NotificationService) NotifyProposal(ctx context.Context, event interfaces.ProposalEvent) {
	keys, ok := notificationTexts[event.Type]
	if !ok {
		return
	}
	data := map[string]string{
		"type":        event.Type,
		"proposal_id": event.ProposalID,
		"child_id":    event.ChildID,
		"change_type": event.ChangeType,
		"status":      event.Status,
	}

	for _, uid := range s.recipients(ctx, event) {
		token, lang, err := s.device(uid)
		if err != nil {
			log.Printf("[FCM] Адресат %s не найден: %v", uid, err)
			continue
		}
		if token == "" {
			continue
		}
		if err := s.SendNotification(ctx, token, keys[0], keys[1], data, lang); err != nil {
			log.Printf("[FCM] Ошибка отправки уведомления %s для %s: %v", event.Type, uid, err)
		}
	}
}

// recipients: явный список из события или вся семья, кроме инициатора.
func (s *NotificationService) recipients(ctx context.Context, event interfaces.ProposalEvent) []string {
	if len(event.Recipients) > 0 || s.Directory == nil {
		return event.Recipients
	}
	record, err := s.Directory.GetChild(ctx, event.ChildID)
	if err != nil {
		log.Printf("[FCM] Не удалось получить семью ребенка %s: %v", event.ChildID, err)
		return nil
	}
	return familyRecipients(record, event.ActorID, true)
}

func (s *NotificationService) device(uid string) (string, string, error) {
	if parent, err := s.ParentRepo.FindByFirebaseUID(uid); err == nil {
		return parent.DeviceToken, parent.Lang, nil
	}
	child, err := s.ChildRepo.FindByFirebaseUID(uid)
	if err != nil {
		return "", "", err
	}
	return child.DeviceToken, child.Lang, nil
}

func (s *NotificationService) translate(key, lang string) string {
	if s.TranslationSrv != nil && lang != "" {
		if translated, ok := s.TranslationSrv.GetAllTranslations(lang)[key]; ok && translated != "" {
			return translated
		}
	}
	if text, ok := defaultTexts[key]; ok {
		return text
	}
	return key
}

// SendNotification отправляет push-уведомление на устройство с учетом языка
func (s *NotificationService) SendNotification(ctx context.Context, deviceToken, title, body string, data map[string]string, lang string) error {
	if deviceToken == "" {
		return fmt.Errorf("device token is empty")
	}
	if s.FCMClient == nil {
		return fmt.Errorf("FCM client is not configured")
	}

	title = s.translate(title, lang)
	body = s.translate(body, lang)

	message := &messaging.Message{
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:  data,
		Token: deviceToken,
	}

	resp, err := s.FCMClient.Send(ctx, message)
	if err != nil {
		return err
	}

	log.Printf("[FCM] Уведомление успешно отправлено. ID: %s, Title: %s", resp, title)
	return nil
}
