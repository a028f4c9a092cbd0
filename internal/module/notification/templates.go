package notification

import (
	"bytes"
	"fmt"
	"html/template"
)

// emailData feeds the shared member-club layout.
type emailData struct {
	Name     string
	Heading  string
	Gold     bool // gold heading for positive news, white otherwise
	Lines    []string
	CTALabel string
	CTAURL   string
}

// One layout for every lifecycle email: dark body, gold accents, serif
// wordmark. Matches the club's app styling.
const emailLayout = `<!DOCTYPE html>
<html lang="ja">
<body style="margin:0;padding:0;background-color:#0a0a0a;font-family:'Helvetica Neue',Arial,'Hiragino Kaku Gothic ProN',sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color:#0a0a0a;padding:40px 20px;">
    <tr><td align="center">
      <table width="600" cellpadding="0" cellspacing="0" style="background-color:#111;border:1px solid #222;border-radius:16px;overflow:hidden;">
        <tr><td style="background:linear-gradient(135deg,#1a1a1a,#0d0d0d);padding:48px 40px;text-align:center;border-bottom:1px solid #B8860B;">
          <h1 style="margin:0;font-size:28px;font-weight:300;letter-spacing:8px;color:#D4AF37;font-family:Georgia,serif;">THE VVIP</h1>
          <p style="margin:8px 0 0;font-size:10px;letter-spacing:4px;color:#666;text-transform:uppercase;">Exclusive Members Club</p>
        </td></tr>
        <tr><td style="padding:48px 40px;">
          <p style="color:#999;font-size:14px;margin:0 0 24px;line-height:1.8;">{{.Name}} 様</p>
          <h2 style="color:{{if .Gold}}#D4AF37{{else}}#fff{{end}};font-size:22px;font-weight:400;margin:0 0 24px;font-family:Georgia,serif;">{{.Heading}}</h2>
          {{range .Lines}}<p style="color:#999;font-size:14px;line-height:2;margin:0 0 16px;">{{.}}</p>
          {{end}}{{if .CTAURL}}<div style="text-align:center;margin:32px 0;">
            <a href="{{.CTAURL}}" style="display:inline-block;background:linear-gradient(135deg,#D4AF37,#B8860B);color:#000;text-decoration:none;padding:16px 48px;border-radius:50px;font-size:13px;font-weight:700;letter-spacing:3px;text-transform:uppercase;">{{.CTALabel}}</a>
          </div>
          {{end}}<div style="border-top:1px solid #222;padding-top:24px;margin-top:32px;">
            <p style="color:#555;font-size:11px;line-height:1.8;margin:0;">ご不明な点がございましたら、お気軽にお問い合わせください。<br>THE VVIP コンシェルジュチーム</p>
          </div>
        </td></tr>
        <tr><td style="background-color:#0a0a0a;padding:24px 40px;text-align:center;border-top:1px solid #1a1a1a;">
          <p style="color:#333;font-size:10px;letter-spacing:2px;margin:0;">&copy; THE VVIP. All rights reserved.</p>
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

var emailTmpl = template.Must(template.New("email").Parse(emailLayout))

func renderEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func activatedEmail(name, plan, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: fmt.Sprintf("%s メンバーシップへようこそ", plan),
		Gold:    true,
		Lines: []string{
			fmt.Sprintf("%s プランのご登録が完了いたしました。", plan),
			"本日より、メンバー限定のすべての機能をご利用いただけます。",
			"なお、ご契約には3ヶ月の最低利用期間がございます。",
		},
		CTALabel: "ラウンジへ入る",
		CTAURL:   appURL,
	})
	return fmt.Sprintf("【THE VVIP】%s メンバーシップ開始のお知らせ", plan), html, err
}

func paymentSucceededEmail(name, plan, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: "ご利用料金のお支払いが完了いたしました",
		Gold:    true,
		Lines: []string{
			fmt.Sprintf("%s プランの更新料金のお支払いが完了いたしました。", plan),
			"引き続きメンバー限定のすべての機能をご利用いただけます。",
		},
		CTALabel: "ラウンジへ入る",
		CTAURL:   appURL,
	})
	return "【THE VVIP】お支払い完了のお知らせ", html, err
}

func downgradeScheduledEmail(name, fromPlan, toPlan, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: "プラン変更のご予約を承りました",
		Lines: []string{
			fmt.Sprintf("%s プランから %s プランへの変更を承りました。", fromPlan, toPlan),
			"変更は次回のご請求日に適用されます。それまでは現在のプランをそのままご利用いただけます。",
		},
		CTALabel: "プランを確認する",
		CTAURL:   appURL,
	})
	return "【THE VVIP】プラン変更予約のお知らせ", html, err
}

func downgradeAppliedEmail(name, plan, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: "プラン変更が完了いたしました",
		Lines: []string{
			fmt.Sprintf("ご予約いただいたプラン変更が完了し、現在 %s プランをご利用中です。", plan),
		},
		CTALabel: "ラウンジへ入る",
		CTAURL:   appURL,
	})
	return "【THE VVIP】プラン変更完了のお知らせ", html, err
}

func paymentFailedEmail(name, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: "お支払いを確認できませんでした",
		Lines: []string{
			"ご登録のお支払い方法での決済が完了しませんでした。",
			"お手数ですが、お支払い方法のご確認・ご変更をお願いいたします。",
		},
		CTALabel: "お支払い方法を更新",
		CTAURL:   appURL,
	})
	return "【THE VVIP】お支払いに関するお知らせ", html, err
}

func canceledEmail(name, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: "メンバーシップ終了のお知らせ",
		Lines: []string{
			"メンバーシップの解約手続きが完了いたしました。",
			"またのご利用を心よりお待ちしております。",
		},
		CTALabel: "再入会はこちら",
		CTAURL:   appURL,
	})
	return "【THE VVIP】メンバーシップ終了のお知らせ", html, err
}

func verificationApprovedEmail(name, appURL string) (string, string, error) {
	html, err := renderEmail(emailData{
		Name:    name,
		Heading: "本人確認が承認されました",
		Gold:    true,
		Lines: []string{
			"ご提出いただいた本人確認書類の審査が完了し、承認されました。",
			"本日より、すべてのメンバー機能をご利用いただけます。",
		},
		CTALabel: "ラウンジへ入る",
		CTAURL:   appURL,
	})
	return "【THE VVIP】本人確認承認のお知らせ", html, err
}

func verificationRejectedEmail(name, reason, appURL string) (string, string, error) {
	lines := []string{
		"ご提出いただいた本人確認書類を確認いたしましたが、承認には至りませんでした。",
	}
	if reason != "" {
		lines = append(lines, fmt.Sprintf("理由: %s", reason))
	}
	lines = append(lines, "お手数ですが、書類の再提出をお願いいたします。")

	html, err := renderEmail(emailData{
		Name:     name,
		Heading:  "本人確認書類の再提出のお願い",
		Lines:    lines,
		CTALabel: "再提出する",
		CTAURL:   appURL,
	})
	return "【THE VVIP】本人確認書類 再提出のお願い", html, err
}
