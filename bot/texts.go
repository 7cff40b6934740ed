package bot

import (
	"fmt"
	"strings"
	"time"

	"ledgerbot/models"
	"ledgerbot/services"
	"ledgerbot/tools"
)

/************************************************
/**** MARK: FIXED REPLIES ****/
/************************************************/
const TEXT_UNKNOWN_COMMAND = "פקודה לא מוכרת. שלח !help לרשימת הפקודות הזמינות."
const TEXT_REQUIRES_SUBSCRIPTION = "פקודה זו דורשת מנוי פעיל. שלח !subscribe להתחלת מנוי."
const TEXT_ONBOARDING = "שלום! כדי להשתמש בבוט, אנא התחל מנוי או תקופת ניסיון חינמית.\n\nשלח /trial לתקופת ניסיון חינמית\nשלח /subscribe למידע על מנויים"
const TEXT_MESSAGE_RECEIVED = "הודעתך התקבלה! הבוט עובד על התשובה..."
const TEXT_GENERIC_ERROR = "אירעה שגיאה בעיבוד ההודעה. אנא נסה שוב מאוחר יותר."
const TEXT_STORE_BUSY = "המערכת עמוסה כרגע. אנא נסה שוב בעוד מספר דקות."
const TEXT_ALREADY_ACTIVE = "יש לך כבר מנוי פעיל!"
const TEXT_TRIAL_UNAVAILABLE = "כבר השתמשת בתקופת הניסיון שלך או שיש לך מנוי פעיל."
const TEXT_CANCELLED = "המנוי שלך בוטל. תוכל לחדש אותו בכל עת עם !subscribe."
const TEXT_NO_TRANSACTIONS = "אין תנועות להצגה."
const TEXT_SEARCH_EMPTY_TERM = "❌ נא לציין מילה לחיפוש.\n\nדוגמה: פ ים"
const TEXT_SEARCH_STOPPED = "🛑 החיפוש הפעיל הופסק."
const TEXT_SEARCH_NONE_ACTIVE = "אין חיפוש פעיל."
const TEXT_NO_GROUPS = "עדיין לא נשמרו הודעות מקבוצות."

// degraded mode (store down)
const TEXT_DEGRADED_STATUS = "📊 *סטטוס מערכת*\n\n⚠️ מסד הנתונים לא מחובר כרגע.\nהמערכת פועלת במצב מוגבל.\n\nתכונות זמינות:\n✅ פקודות עזרה\n✅ חיפוש חי בקבוצות\n\n❌ מנויים ותשלומים לא זמינים"
const TEXT_DEGRADED_NOTICE = "⚠️ מסד הנתונים לא מחובר. שלח !help או !start לקבלת מידע."
const TEXT_DEGRADED_HELP = `🤖 *ברוכים הבאים לבוט WhatsApp!*

⚠️ *מצב נוכחי:* מוגבל
מסד הנתונים לא מחובר כרגע.

📋 *פקודות זמינות:*
• !help או !start - הצג תפריט זה
• !status - בדוק סטטוס המערכת
• פ <מילה> - חיפוש חי בהודעות קבוצה
• עצור - הפסק חיפוש פעיל`

var statusNames = map[string]string{
	models.SUBSCRIPTION_STATUS_NONE:      "אין מנוי",
	models.SUBSCRIPTION_STATUS_TRIAL:     "תקופת ניסיון",
	models.SUBSCRIPTION_STATUS_ACTIVE:    "פעיל",
	models.SUBSCRIPTION_STATUS_EXPIRED:   "פג תוקף",
	models.SUBSCRIPTION_STATUS_CANCELLED: "מבוטל",
}

var transactionNames = map[string]string{
	models.TRANSACTION_TYPE_PAYMENT: "💰 תשלום",
	models.TRANSACTION_TYPE_DEBT:    "📉 חוב",
	models.TRANSACTION_TYPE_CREDIT:  "✅ זכות",
	models.TRANSACTION_TYPE_REFUND:  "↩️ החזר",
}

func statusName(status string) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return status
}

func planName(plan string) string {
	if plan == models.PLAN_BASIC {
		return "בסיסית"
	}
	return "פרימיום"
}

func formatDate(t time.Time) string {
	return t.In(time.Local).Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	return t.In(time.Local).Format("02/01/2006 15:04")
}

func helpText(reg *Registry) string {
	var sb strings.Builder
	sb.WriteString("🤖 *פקודות זמינות:*\n\n")
	for _, cmd := range reg.Commands() {
		switch cmd.Name() {
		case SEARCH_COMMAND:
			sb.WriteString("פ <מילה> - " + cmd.Description() + "\n")
		case STOP_TOKEN:
			sb.WriteString(STOP_TOKEN + " - " + cmd.Description() + "\n")
		default:
			sb.WriteString("/" + cmd.Name() + " - " + cmd.Description() + "\n")
		}
	}
	sb.WriteString("\nלתמיכה, צור קשר עם הצוות שלנו.")
	return sb.String()
}

func plansText(plans []models.Plan) string {
	var sb strings.Builder
	sb.WriteString("💎 *תוכניות מנוי:*\n")
	for _, p := range plans {
		fmt.Fprintf(&sb, "\n*תוכנית %s* - %s/חודש\n", p.Name, tools.FormatMoney(p.PriceCents, tools.CurrencySymbol(p.Currency)))
		for _, f := range p.FeatureList() {
			sb.WriteString("✓ " + f + "\n")
		}
	}
	sb.WriteString("\nלרכישת מנוי, בקר באתר שלנו או צור איתנו קשר.")
	return sb.String()
}

func userStatusText(u models.User) string {
	var sb strings.Builder
	sb.WriteString("📊 *סטטוס המנוי שלך:*\n\n")
	sb.WriteString("סטטוס: " + statusName(u.SubscriptionStatus))
	if u.SubscriptionPlan != "" {
		sb.WriteString("\nתוכנית: " + planName(u.SubscriptionPlan))
	}
	if u.SubscriptionEnd != nil {
		sb.WriteString("\nתוקף עד: " + formatDate(*u.SubscriptionEnd))
	}
	fmt.Fprintf(&sb, "\nמספר הודעות: %d", u.MessageCount)
	return sb.String()
}

func balanceText(b services.BalanceView, symbol string) string {
	label := "זכות"
	if b.Status == "debt" {
		label = "חוב"
	}
	abs := b.BalanceCents
	if abs < 0 {
		abs = -abs
	}
	var sb strings.Builder
	sb.WriteString("💰 *יתרת החשבון שלך:*\n\n")
	sb.WriteString("סך חובות: " + tools.FormatMoney(b.TotalDebtCents, symbol) + "\n")
	sb.WriteString("סך זכויות: " + tools.FormatMoney(b.TotalCreditCents, symbol) + "\n")
	sb.WriteString("יתרה נוכחית: " + tools.FormatMoney(abs, symbol) + " (" + label + ")\n")
	if b.LastTransaction != nil {
		sb.WriteString("\nתנועה אחרונה: " + formatDate(*b.LastTransaction))
	}
	return sb.String()
}

func transactionsText(list []models.Transaction, symbol string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *%d התנועות האחרונות:*\n\n", len(list))
	for _, t := range list {
		sb.WriteString(transactionNames[t.Type] + " - " + tools.FormatMoney(t.AmountCents, symbol) + "\n")
		sb.WriteString(t.Description + "\n")
		if t.CreatedAt != nil {
			sb.WriteString(formatDate(*t.CreatedAt) + "\n")
		}
		if t.ReferenceNumber != "" {
			sb.WriteString("אסמכתא: " + t.ReferenceNumber + "\n")
		}
		if t.SalesAgent != nil {
			sb.WriteString("סוכן: " + t.SalesAgent.Name + "\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func preview(content string) string {
	r := []rune(content)
	if len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return content
}

func searchResultsText(term string, results []models.GroupMessage) string {
	var sb strings.Builder
	if len(results) == 0 {
		fmt.Fprintf(&sb, "🔍 לא נמצאו הודעות שמתחילות ב-\"%s\"\n", term)
	} else {
		fmt.Fprintf(&sb, "🔍 *נמצאו %d תוצאות עבור \"%s\":*\n\n", len(results), term)
		for i, m := range results {
			fmt.Fprintf(&sb, "%d. 📱 *%s*\n", i+1, m.GroupName)
			sb.WriteString("   👤 " + m.DisplaySender() + "\n")
			sb.WriteString("   📅 " + formatDateTime(m.Timestamp) + "\n")
			sb.WriteString("   💬 " + preview(m.Content) + "\n\n")
		}
	}
	return sb.String()
}

func searchStartedText(term string) string {
	return fmt.Sprintf("🔔 חיפוש חי הופעל עבור \"%s\".\nתקבל הודעה על כל הודעה חדשה בקבוצות שמתחילה במילה זו.\nשלח %s להפסקה.", term, STOP_TOKEN)
}

func searchNotificationText(term string, ev Event) string {
	sender := ev.SenderName
	if sender == "" {
		sender = ev.SenderID
	}
	group := ev.GroupName
	if group == "" {
		group = ev.GroupID
	}
	return fmt.Sprintf("🔔 *התאמה לחיפוש \"%s\"*\n\n📱 %s\n👤 %s\n📅 %s\n💬 %s",
		term, group, sender, formatDateTime(ev.Timestamp), strings.TrimSpace(ev.Text))
}

func groupsText(groups []services.GroupSummary) string {
	var sb strings.Builder
	sb.WriteString("👥 *קבוצות מוכרות:*\n\n")
	for i, g := range groups {
		fmt.Fprintf(&sb, "%d. %s (%d הודעות)\n", i+1, g.GroupName, g.MessageCount)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func trialStartedText(days int) string {
	return fmt.Sprintf("🎉 תקופת הניסיון החינמית שלך התחילה!\n\nתוכל ליהנות מכל התכונות במשך %d ימים.", days)
}
