package http

import nethttp "net/http"

func consoleHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.URL.Path != "/" {
		nethttp.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(nethttp.StatusOK)
	_, _ = w.Write([]byte(consoleHTML))
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

const consoleHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Indexing QA Console</title>
  <style>
    :root {
      --brand: #0e5d8f;
      --brand-2: #0971b2;
      --bg: #f7f7f7;
      --paper: #fff;
      --text: #333;
      --muted: #777;
      --line: #ddd;
      --line-soft: #eee;
      --head: #f0f0f0;
      --ok-bg: #dff0d8;
      --ok-text: #3c763d;
      --bad-bg: #f2dede;
      --bad-text: #a94442;
    }

    * { box-sizing: border-box; }

    body {
      margin: 0;
      background: var(--bg);
      color: var(--text);
      font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;
      font-size: 14px;
      line-height: 1.42857143;
    }

    header {
      background: linear-gradient(to right, var(--brand) 0, var(--brand-2) 100%);
      border-bottom: 1px solid #0b4e79;
      box-shadow: 0 2px 5px rgba(0, 0, 0, 0.15);
    }

    .container { margin: 0 auto; padding: 0 15px; width: 100%; max-width: 1680px; }

    .header-inner {
      min-height: 64px;
      display: flex;
      align-items: center;
      justify-content: space-between;
      gap: 16px;
    }

    .navbar-brand { color: #fff; font-size: 22px; font-weight: 300; }
    .navbar-brand strong { font-weight: 600; }
    .navbar-note { color: rgba(255, 255, 255, 0.9); font-size: 13px; text-align: right; }

    main { padding: 18px 0 32px; }

    .tabs {
      display: flex;
      flex-wrap: wrap;
      gap: 8px;
      margin-bottom: 14px;
      border-bottom: 1px solid var(--line);
      padding-bottom: 8px;
    }

    .tab-btn, .btn {
      border: 1px solid #c7d7e5;
      background: #f3f8fc;
      color: var(--brand);
      padding: 6px 10px;
      font-size: 12px;
      font-weight: 600;
      cursor: pointer;
    }
    .tab-btn.active, .btn.primary { background: var(--brand); color: #fff; border-color: var(--brand); }
    .btn.danger { color: var(--bad-text); border-color: #ebccd1; background: var(--bad-bg); }
    .btn:disabled { opacity: 0.5; cursor: default; }

    .tab-pane { display: none; }
    .tab-pane.active { display: block; }

    .panel { border: 1px solid var(--line); background: var(--paper); margin-bottom: 14px; }
    .panel-heading { padding: 10px 12px; border-bottom: 1px solid var(--line); background: var(--head); }
    .panel-body { padding: 10px 12px 12px; }
    .panel-grid { display: grid; gap: 14px; grid-template-columns: 1fr 1fr; }

    h1 { margin: 0 0 12px; font-size: 28px; font-weight: 300; color: #444; }
    h3 { margin: 0; font-size: 15px; font-weight: 600; color: #444; }

    .kpi-grid { display: grid; gap: 12px; grid-template-columns: repeat(4, minmax(0, 1fr)); margin-bottom: 14px; }
    .kpi { border: 1px solid var(--line); background: var(--paper); padding: 10px 12px; }
    .kpi .label { color: var(--muted); font-size: 11px; text-transform: uppercase; letter-spacing: 0.5px; }
    .kpi .value { font-size: 24px; font-weight: 300; }

    table { width: 100%; border-collapse: collapse; }
    th, td {
      padding: 7px 8px;
      vertical-align: top;
      border-top: 1px solid var(--line);
      text-align: left;
      font-size: 13px;
    }
    thead th {
      border-bottom: 2px solid var(--line);
      border-top: 0;
      color: #555;
      font-size: 11px;
      text-transform: uppercase;
      letter-spacing: 0.5px;
      background: #fafafa;
    }
    tbody tr:nth-child(odd) td { background: #f9f9f9; }
    .row-click { cursor: pointer; }
    .row-click:hover td { background: #f0f6fb !important; }

    .pill {
      display: inline-block;
      border-radius: 2px;
      font-size: 11px;
      padding: 2px 6px;
      font-weight: 700;
      border: 1px solid transparent;
      text-transform: uppercase;
    }
    .ok { color: var(--ok-text); background: var(--ok-bg); border-color: #d6e9c6; }
    .bad { color: var(--bad-text); background: var(--bad-bg); border-color: #ebccd1; }
    .warn { color: #8a6d3b; background: #fcf8e3; border-color: #faebcc; }
    .info { color: #31708f; background: #d9edf7; border-color: #bce8f1; }

    .toolbar { display: flex; flex-wrap: wrap; gap: 8px; align-items: center; margin-bottom: 10px; }
    .toolbar input, .toolbar select, textarea, .field input, .field select {
      border: 1px solid var(--line);
      padding: 5px 6px;
      font-size: 13px;
    }
    .dropdown { position: relative; }
    .dropdown-menu {
      display: none;
      position: absolute;
      z-index: 10;
      top: 100%;
      left: 0;
      min-width: 200px;
      max-height: 260px;
      overflow: auto;
      background: var(--paper);
      border: 1px solid var(--line);
      box-shadow: 0 4px 8px rgba(0, 0, 0, 0.1);
      padding: 6px;
    }
    .dropdown.open .dropdown-menu { display: block; }
    .dropdown-menu label { display: flex; gap: 6px; align-items: center; padding: 2px 0; font-size: 12px; }

    .field { display: flex; flex-direction: column; gap: 3px; margin-bottom: 8px; }
    .field label { font-size: 12px; color: var(--muted); }
    .changed input { border-color: #f0ad4e; background: #fff8ec; }

    .bar { height: 12px; background: var(--brand-2); }
    .hint { margin-top: 8px; color: var(--muted); font-size: 12px; }
    .error-box { margin: 8px 0; padding: 8px; color: var(--bad-text); background: var(--bad-bg); border: 1px solid #ebccd1; display: none; }
    .mono { font-family: Menlo, Monaco, Consolas, monospace; word-break: break-all; }
    pre {
      margin: 0;
      padding: 10px;
      border: 1px solid var(--line);
      background: #fafafa;
      max-height: 300px;
      overflow: auto;
      font: 12px/1.35 Menlo, Monaco, Consolas, monospace;
    }
    textarea { width: 100%; min-height: 120px; font-family: Menlo, Monaco, Consolas, monospace; }

    .modal-backdrop {
      display: none;
      position: fixed;
      inset: 0;
      background: rgba(0, 0, 0, 0.35);
      z-index: 20;
    }
    .modal-backdrop.open { display: block; }
    .modal {
      position: absolute;
      top: 40px;
      left: 50%;
      transform: translateX(-50%);
      width: min(960px, 95vw);
      max-height: calc(100vh - 80px);
      overflow: auto;
      background: var(--paper);
      border: 1px solid var(--line);
      padding: 14px;
    }

    @media (max-width: 1024px) {
      .kpi-grid { grid-template-columns: repeat(2, minmax(0, 1fr)); }
      .panel-grid { grid-template-columns: 1fr; }
    }
  </style>
</head>
<body>
  <header>
    <div class="container header-inner">
      <div class="navbar-brand"><strong>Indexing</strong> QA Console</div>
      <div class="navbar-note">Backend <span id="backend-pill" class="pill warn">unknown</span> <span id="backend-checked"></span></div>
    </div>
  </header>
  <main>
    <div class="container">
      <div class="tabs">
        <button class="tab-btn active" data-tab="dashboard">Dashboard</button>
        <button class="tab-btn" data-tab="records">Records</button>
        <button class="tab-btn" data-tab="analytics">Analytics</button>
        <button class="tab-btn" data-tab="issues">Issues <span id="issues-badge" class="pill info">0</span></button>
        <button class="tab-btn" data-tab="dead-letters">Dead Letters</button>
        <button class="tab-btn" data-tab="settings">Settings</button>
        <button class="tab-btn" data-tab="backend-test">Backend Test</button>
      </div>

      <section id="tab-dashboard" class="tab-pane active">
        <h1>Dashboard</h1>
        <div class="toolbar" id="dash-filters"></div>
        <div class="error-box" id="dash-error"></div>
        <div class="kpi-grid" id="dash-kpis"></div>
        <div class="panel-grid">
          <article class="panel">
            <div class="panel-heading"><h3>Daily Trend</h3></div>
            <div class="panel-body"><table><thead><tr><th>Date</th><th>Records</th><th>Avg Quality</th><th>Approved</th><th>Flagged</th></tr></thead><tbody id="dash-trend"></tbody></table></div>
          </article>
          <article class="panel">
            <div class="panel-heading"><h3>Recent Records</h3></div>
            <div class="panel-body"><table><thead><tr><th>ID</th><th>Company</th><th>Status</th><th>Quality</th></tr></thead><tbody id="dash-recent"></tbody></table></div>
          </article>
        </div>
      </section>

      <section id="tab-records" class="tab-pane">
        <h1>Records</h1>
        <div class="toolbar">
          <input id="rec-search" placeholder="Search content" />
          <select id="rec-status"><option value="">Any status</option></select>
          <select id="rec-company"><option value="">Any company</option></select>
          <select id="rec-connector"><option value="">Any connector</option></select>
          <input id="rec-min" type="number" min="0" max="100" placeholder="Min quality" style="width:100px" />
          <input id="rec-max" type="number" min="0" max="100" placeholder="Max quality" style="width:100px" />
          <button class="btn primary" id="rec-apply">Apply</button>
          <input id="view-name" placeholder="Saved view name" />
          <button class="btn" id="view-save">Save view</button>
          <select id="view-list"><option value="">Saved views</option></select>
        </div>
        <div class="error-box" id="rec-error"></div>
        <table>
          <thead><tr><th>ID</th><th>Company</th><th>Connector</th><th>Status</th><th>Quality</th><th>Tags</th><th>Created</th></tr></thead>
          <tbody id="rec-body"></tbody>
        </table>
        <div class="toolbar" style="margin-top:10px">
          <button class="btn" id="rec-prev">Previous</button>
          <span id="rec-page">-</span>
          <button class="btn" id="rec-next">Next</button>
        </div>
      </section>

      <section id="tab-analytics" class="tab-pane">
        <h1>Analytics</h1>
        <div class="toolbar">
          <select id="an-days"><option value="7">7 days</option><option value="14">14 days</option><option value="30">30 days</option><option value="90">90 days</option></select>
          <input id="an-company" placeholder="Company" />
          <input id="an-connector" placeholder="Connector" />
          <button class="btn primary" id="an-apply">Apply</button>
        </div>
        <div class="error-box" id="an-error"></div>
        <div class="kpi-grid" id="an-kpis"></div>
        <div class="panel-grid">
          <article class="panel"><div class="panel-heading"><h3>Quality Histogram</h3></div><div class="panel-body"><table><tbody id="an-hist"></tbody></table></div></article>
          <article class="panel"><div class="panel-heading"><h3>By Company</h3></div><div class="panel-body"><table><thead><tr><th>Company</th><th>Records</th><th>Avg</th><th>Reliability</th></tr></thead><tbody id="an-company-body"></tbody></table></div></article>
          <article class="panel"><div class="panel-heading"><h3>By Connector</h3></div><div class="panel-body"><table><thead><tr><th>Connector</th><th>Records</th><th>Avg</th><th>Reliability</th></tr></thead><tbody id="an-connector-body"></tbody></table></div></article>
          <article class="panel"><div class="panel-heading"><h3>By Tag</h3></div><div class="panel-body"><table><thead><tr><th>Tag</th><th>Records</th><th>Avg</th><th>Relevancy</th></tr></thead><tbody id="an-tag-body"></tbody></table></div></article>
        </div>
      </section>

      <section id="tab-issues" class="tab-pane">
        <h1>Quality Issues</h1>
        <div class="toolbar"><button class="btn primary" id="issues-fix-all">Auto-fix all fixable</button><span id="issues-summary"></span></div>
        <div class="error-box" id="issues-error"></div>
        <table>
          <thead><tr><th>Severity</th><th>Type</th><th>Description</th><th>Suggestion</th><th>Record</th><th></th></tr></thead>
          <tbody id="issues-body"></tbody>
        </table>
      </section>

      <section id="tab-dead-letters" class="tab-pane">
        <h1>Dead Letters</h1>
        <div class="toolbar">
          <select id="dl-error-type"><option value="">Any error type</option></select>
          <select id="dl-connector"><option value="">Any connector</option></select>
          <select id="dl-resolved"><option value="">Any</option><option value="false">Unresolved</option><option value="true">Resolved</option></select>
          <input id="dl-search" placeholder="Search" />
          <button class="btn primary" id="dl-apply">Apply</button>
        </div>
        <div class="error-box" id="dl-error"></div>
        <div class="kpi-grid" id="dl-kpis"></div>
        <table>
          <thead><tr><th>ID</th><th>Error Type</th><th>Message</th><th>Connector</th><th>Retries</th><th>Failed At</th><th>State</th><th></th></tr></thead>
          <tbody id="dl-body"></tbody>
        </table>
      </section>

      <section id="tab-settings" class="tab-pane">
        <h1>Settings</h1>
        <div class="error-box" id="set-error"></div>
        <div class="panel-grid">
          <article class="panel">
            <div class="panel-heading"><h3>Quality Thresholds</h3></div>
            <div class="panel-body">
              <div id="set-thresholds"></div>
              <div class="field"><label for="set-reason">Reason</label><input id="set-reason" /></div>
              <button class="btn primary" id="set-save-thresholds">Save changed thresholds</button>
            </div>
          </article>
          <article class="panel">
            <div class="panel-heading"><h3>LLM Invocation</h3></div>
            <div class="panel-body">
              <div class="field"><label for="llm-mode">Mode</label>
                <select id="llm-mode"><option>binary</option><option>percentage</option><option>weighted</option><option>range</option></select>
              </div>
              <div class="field"><label for="llm-percentage">Percentage threshold</label><input id="llm-percentage" type="number" step="0.1" /></div>
              <div class="field"><label for="llm-weighted">Weighted threshold</label><input id="llm-weighted" type="number" step="0.1" /></div>
              <div class="field"><label for="llm-range-min">Range min</label><input id="llm-range-min" type="number" step="0.1" /></div>
              <div class="field"><label for="llm-range-max">Range max</label><input id="llm-range-max" type="number" step="0.1" /></div>
              <div class="toolbar">
                <button class="btn primary" id="llm-save">Save</button>
                <button class="btn danger" id="llm-reset">Reset to defaults</button>
              </div>
              <div class="field"><label for="llm-sample">Simulation sample (quality_checks JSON)</label><textarea id="llm-sample">[{"check_name":"empty_content","status":"PASS"},{"check_name":"tag_relevance","status":"FAIL"}]</textarea></div>
              <div class="toolbar">
                <button class="btn" id="llm-simulate">Simulate</button>
                <label class="hint"><input type="checkbox" id="llm-remote" /> Evaluate on backend</label>
              </div>
              <pre id="llm-decision">No simulation yet.</pre>
            </div>
          </article>
        </div>
        <article class="panel">
          <div class="panel-heading"><h3>LLM Settings History</h3></div>
          <div class="panel-body"><table><thead><tr><th>When</th><th>Mode</th><th>By</th><th>Reason</th></tr></thead><tbody id="set-history"></tbody></table></div>
        </article>
      </section>

      <section id="tab-backend-test" class="tab-pane">
        <h1>Backend Test</h1>
        <div class="toolbar"><button class="btn primary" id="bt-run">Run connectivity test</button><span id="bt-summary" class="mono"></span></div>
        <table>
          <thead><tr><th>Check</th><th>Path</th><th>Result</th><th>Status</th><th>Latency</th><th>Error</th></tr></thead>
          <tbody id="bt-body"></tbody>
        </table>
        <h1 style="margin-top:20px">API Test</h1>
        <div class="error-box" id="at-error"></div>
        <div class="toolbar">
          <select id="at-call"></select>
          <button class="btn primary" id="at-send">Send</button>
          <span id="at-summary" class="mono"></span>
        </div>
        <div class="field"><label for="at-payload">Payload (JSON)</label><textarea id="at-payload">{"content":"Sample content for ingestion","tags":["test"]}</textarea></div>
        <pre id="at-result">No call yet.</pre>
        <h1 style="margin-top:20px">Action Journal</h1>
        <table>
          <thead><tr><th>When</th><th>Action</th><th>Target</th><th>Actor</th><th>Result</th></tr></thead>
          <tbody id="journal-body"></tbody>
        </table>
      </section>
    </div>
  </main>

  <div class="modal-backdrop" id="rec-modal">
    <div class="modal">
      <div class="toolbar" style="justify-content:space-between"><h3 id="modal-title">Record</h3><button class="btn" id="modal-close">Close</button></div>
      <div class="error-box" id="modal-error"></div>
      <div class="panel-grid">
        <div>
          <div class="field"><label for="modal-content">Content</label><textarea id="modal-content"></textarea></div>
          <div class="field"><label for="modal-tags">Tags (comma separated)</label><input id="modal-tags" /></div>
          <div class="field"><label for="modal-reason">Reason</label><input id="modal-reason" /></div>
          <div class="toolbar">
            <button class="btn primary" id="modal-approve">Approve</button>
            <button class="btn danger" id="modal-flag">Flag</button>
            <button class="btn" id="modal-save">Save content</button>
            <button class="btn" id="modal-reprocess">Reprocess</button>
            <button class="btn" id="modal-suggest">Suggest tags</button>
          </div>
          <div class="hint" id="modal-suggestions"></div>
        </div>
        <div>
          <h3>LLM Evaluation</h3>
          <pre id="modal-llm">Loading...</pre>
          <h3 style="margin-top:10px">Audit Trail</h3>
          <table><tbody id="modal-audit"></tbody></table>
        </div>
      </div>
    </div>
  </div>

  <script>
    const q = (s) => document.querySelector(s);
    const qq = (s) => Array.from(document.querySelectorAll(s));
    const html = (id, v) => document.getElementById(id).innerHTML = v;
    const text = (id, v) => document.getElementById(id).textContent = v;

    async function getJSON(url) {
      const r = await fetch(url);
      const body = await r.json().catch(() => ({}));
      if (!r.ok) throw new Error(body.detail || body.error || (url + " -> " + r.status));
      return body;
    }

    async function sendJSON(method, url, payload) {
      const r = await fetch(url, {
        method: method,
        headers: {'Content-Type': 'application/json'},
        body: JSON.stringify(payload || {}),
      });
      const body = await r.json().catch(() => ({}));
      if (!r.ok) throw new Error(body.detail || body.error || (url + " -> " + r.status));
      return body;
    }

    function esc(v) {
      return String(v == null ? '' : v).replace(/[&<>"']/g, (c) => ({'&': '&amp;', '<': '&lt;', '>': '&gt;', '"': '&quot;', "'": '&#39;'}[c]));
    }

    function showError(id, msg) {
      const el = document.getElementById(id);
      el.textContent = msg || '';
      el.style.display = msg ? 'block' : 'none';
    }

    function fmtNum(v, digits) {
      const n = Number(v);
      if (!Number.isFinite(n)) return '-';
      return n.toFixed(digits == null ? 1 : digits);
    }

    function fmtTime(v) {
      if (!v) return '-';
      const d = new Date(v);
      return Number.isNaN(d.getTime()) ? String(v) : d.toISOString().replace('T', ' ').slice(0, 19);
    }

    function statusPill(status) {
      const s = String(status || '').toLowerCase();
      const cls = s === 'approved' ? 'ok' : (s === 'flagged' || s === 'rejected') ? 'bad' : s === 'under_review' ? 'warn' : 'info';
      return '<span class="pill ' + cls + '">' + esc(s || 'unknown') + '</span>';
    }

    function severityPill(sev) {
      const s = String(sev || '').toLowerCase();
      const cls = s === 'critical' || s === 'high' ? 'bad' : s === 'medium' ? 'warn' : 'info';
      return '<span class="pill ' + cls + '">' + esc(s) + '</span>';
    }

    function kpis(id, items) {
      html(id, items.map((it) => '<div class="kpi"><div class="label">' + esc(it[0]) + '</div><div class="value">' + esc(it[1]) + '</div></div>').join(''));
    }

    function emptyRow(cols, msg) {
      return '<tr><td colspan="' + cols + '">' + esc(msg) + '</td></tr>';
    }

    let currentTab = 'dashboard';
    function switchTab(tab) {
      currentTab = tab;
      qq('.tab-btn[data-tab]').forEach((b) => b.classList.toggle('active', b.dataset.tab === tab));
      qq('.tab-pane').forEach((p) => p.classList.toggle('active', p.id === 'tab-' + tab));
      switch (tab) {
      case 'dashboard': loadDashboard(); break;
      case 'records': loadRecordOptions().then(loadSavedViews).then(loadRecords); break;
      case 'analytics': loadAnalytics(); break;
      case 'issues': loadIssues(); break;
      case 'dead-letters': loadDeadLetterOptions().then(loadDeadLetters); break;
      case 'settings': loadSettings(); break;
      case 'backend-test': loadAPITestCalls(); loadJournal(); break;
      }
    }

    async function loadHealth() {
      try {
        const body = await getJSON('/api/v1/status/backend');
        const st = body.data || {};
        const pill = q('#backend-pill');
        pill.className = 'pill ' + (st.online ? 'ok' : (st.checks ? 'bad' : 'warn'));
        pill.textContent = st.online ? 'online' : (st.checks ? 'offline' : 'unknown');
        text('backend-checked', st.last_checked ? 'checked ' + fmtTime(st.last_checked) : '');
      } catch (err) {
        console.error(err);
      }
    }

    // Dashboard

    const dashDims = ['status', 'company', 'connector', 'tag', 'author'];
    let dashOptions = {};
    let dashSel = {};
    let dashRange = {from: '', to: ''};

    function dashQuery() {
      const p = new URLSearchParams();
      dashDims.forEach((dim) => { if ((dashSel[dim] || []).length) p.set(dim, dashSel[dim].join(',')); });
      if (dashRange.from) p.set('date_from', dashRange.from);
      if (dashRange.to) p.set('date_to', dashRange.to);
      return p.toString();
    }

    function toggleDash(dim, value) {
      const cur = dashSel[dim] || [];
      dashSel[dim] = cur.includes(value) ? cur.filter((v) => v !== value) : cur.concat([value]);
      loadDashboard();
    }

    function renderDashFilters() {
      const bar = q('#dash-filters');
      bar.innerHTML = '';
      dashDims.forEach((dim) => {
        const wrap = document.createElement('div');
        wrap.className = 'dropdown';
        const chosen = dashSel[dim] || [];
        const opts = dashOptions[dim] || [];
        wrap.innerHTML = '<button class="btn dropdown-toggle">' + esc(dim) + (chosen.length ? ' (' + chosen.length + ')' : '') + '</button>' +
          '<div class="dropdown-menu">' + (opts.length ? opts.map((o) =>
            '<label><input type="checkbox" data-dim="' + esc(dim) + '" value="' + esc(o.value) + '"' + (chosen.includes(o.value) ? ' checked' : '') + ' /> ' + esc(o.label || o.value) + '</label>'
          ).join('') : '<span class="hint">No options</span>') + '</div>';
        bar.appendChild(wrap);
      });
      [['from', 'From'], ['to', 'To']].forEach((pair) => {
        const input = document.createElement('input');
        input.type = 'date';
        input.title = pair[1];
        input.value = dashRange[pair[0]];
        input.addEventListener('change', () => { dashRange[pair[0]] = input.value; loadDashboard(); });
        bar.appendChild(input);
      });
      const clear = document.createElement('button');
      clear.className = 'btn';
      clear.textContent = 'Clear filters';
      clear.addEventListener('click', () => { dashSel = {}; dashRange = {from: '', to: ''}; loadDashboard(); });
      bar.appendChild(clear);
      bar.querySelectorAll('.dropdown-toggle').forEach((btn) => {
        btn.addEventListener('click', (ev) => {
          ev.stopPropagation();
          const dd = btn.parentElement;
          const open = dd.classList.contains('open');
          qq('.dropdown.open').forEach((d) => d.classList.remove('open'));
          dd.classList.toggle('open', !open);
        });
      });
      bar.querySelectorAll('input[type=checkbox]').forEach((cb) => {
        cb.addEventListener('click', (ev) => ev.stopPropagation());
        cb.addEventListener('change', () => toggleDash(cb.dataset.dim, cb.value));
      });
    }

    async function loadDashboard() {
      try {
        if (!Object.keys(dashOptions).length) {
          const opts = (await getJSON('/api/v1/records/filter-options')).data || {};
          dashOptions = {status: opts.statuses, company: opts.companies, connector: opts.connectors, tag: opts.tags, author: opts.authors};
        }
        const query = dashQuery();
        const body = await getJSON('/api/v1/dashboard' + (query ? '?' + query : ''));
        const d = body.data || {};
        const s = d.stats || {};
        showError('dash-error', body.meta && body.meta.error ? body.meta.error + ': ' + Object.entries(d.errors || {}).map((e) => e[0] + ' (' + e[1] + ')').join(', ') : '');
        kpis('dash-kpis', [
          ['Total records', s.total_records || 0],
          ['Approved', s.approved_records || 0],
          ['Flagged', s.flagged_records || 0],
          ['Under review', s.under_review_records || 0],
          ['Avg quality', fmtNum(s.avg_quality_score)],
          ['Processed 24h', s.processed_last_24h || 0],
          ['Dead letters', s.dead_letter_count || 0],
          ['Approval rate', fmtNum((d.summary || {}).approval_rate) + '%'],
        ]);
        html('dash-trend', (d.trend || []).map((b) => '<tr><td>' + esc(b.date) + '</td><td>' + b.count + '</td><td>' + fmtNum(b.avg_quality) + '</td><td>' + b.approved + '</td><td>' + b.flagged + '</td></tr>').join('') || emptyRow(5, 'No data.'));
        html('dash-recent', (d.recent || []).slice(0, 15).map((r) => '<tr class="row-click" data-id="' + esc(r.id) + '"><td class="mono">' + esc(r.id) + '</td><td>' + esc(r.companyName) + '</td><td>' + statusPill(r.status) + '</td><td>' + fmtNum(r.qualityScore) + '</td></tr>').join('') || emptyRow(4, 'No records.'));
        dashSel = d.filters || {};
        dashRange = {from: d.date_from || '', to: d.date_to || ''};
        renderDashFilters();
      } catch (err) {
        showError('dash-error', err.message);
      }
    }

    // Records

    let recPage = 1;
    let recTotal = 0;
    const recLimit = 25;

    function fillSelect(id, opts, first) {
      const sel = q(id);
      const prev = sel.value;
      sel.innerHTML = '<option value="">' + esc(first) + '</option>' + (opts || []).map((o) => '<option value="' + esc(o.value) + '">' + esc(o.label || o.value) + (o.count ? ' (' + o.count + ')' : '') + '</option>').join('');
      sel.value = prev;
    }

    async function loadRecordOptions() {
      try {
        const opts = (await getJSON('/api/v1/records/filter-options')).data || {};
        fillSelect('#rec-status', opts.statuses, 'Any status');
        fillSelect('#rec-company', opts.companies, 'Any company');
        fillSelect('#rec-connector', opts.connectors, 'Any connector');
      } catch (err) {
        console.error(err);
      }
    }

    function recordFilters() {
      return {
        search: q('#rec-search').value.trim(),
        statuses: q('#rec-status').value ? [q('#rec-status').value] : [],
        companies: q('#rec-company').value ? [q('#rec-company').value] : [],
        connectors: q('#rec-connector').value ? [q('#rec-connector').value] : [],
        min_quality: q('#rec-min').value === '' ? null : Number(q('#rec-min').value),
        max_quality: q('#rec-max').value === '' ? null : Number(q('#rec-max').value),
      };
    }

    function recordQuery(f) {
      const p = new URLSearchParams({page: recPage, limit: recLimit});
      if (f.search) p.set('search', f.search);
      if ((f.statuses || []).length) p.set('status', f.statuses.join(','));
      if ((f.companies || []).length) p.set('company', f.companies.join(','));
      if ((f.connectors || []).length) p.set('source_connector', f.connectors.join(','));
      if (f.min_quality != null) p.set('min_quality', f.min_quality);
      if (f.max_quality != null) p.set('max_quality', f.max_quality);
      return p.toString();
    }

    async function loadRecords() {
      try {
        const body = await getJSON('/api/v1/records?' + recordQuery(recordFilters()));
        const meta = body.meta || {};
        recTotal = meta.total || 0;
        showError('rec-error', meta.error);
        html('rec-body', (body.data || []).map((r) =>
          '<tr class="row-click" data-id="' + esc(r.id) + '"><td class="mono">' + esc(r.id) + '</td><td>' + esc(r.companyName) + '</td><td>' + esc(r.sourceConnectorName) +
          '</td><td>' + statusPill(r.status) + '</td><td>' + fmtNum(r.qualityScore) + '</td><td>' + esc((r.tags || []).join(', ')) + '</td><td>' + fmtTime(r.createdAt) + '</td></tr>'
        ).join('') || emptyRow(7, 'No records match.'));
        const pages = Math.max(1, Math.ceil(recTotal / recLimit));
        text('rec-page', 'Page ' + recPage + ' of ' + pages + ' (' + recTotal + ' records)');
        q('#rec-prev').disabled = recPage <= 1;
        q('#rec-next').disabled = recPage >= pages;
      } catch (err) {
        showError('rec-error', err.message);
      }
    }

    async function loadSavedViews() {
      try {
        const body = await getJSON('/api/v1/views?page=records');
        const sel = q('#view-list');
        sel.innerHTML = '<option value="">Saved views</option>' + (body.data || []).map((v) => '<option value="' + v.id + '" data-filters="' + esc(JSON.stringify(v.filters || {})) + '">' + esc(v.name) + '</option>').join('');
      } catch (err) {
        q('#view-save').disabled = true;
        q('#view-list').disabled = true;
      }
    }

    function applySavedView() {
      const opt = q('#view-list').selectedOptions[0];
      if (!opt || !opt.value) return;
      const f = JSON.parse(opt.dataset.filters || '{}');
      q('#rec-search').value = f.search || '';
      q('#rec-status').value = (f.statuses || [])[0] || '';
      q('#rec-company').value = (f.companies || [])[0] || '';
      q('#rec-connector').value = (f.connectors || [])[0] || '';
      q('#rec-min').value = f.min_quality == null ? '' : f.min_quality;
      q('#rec-max').value = f.max_quality == null ? '' : f.max_quality;
      recPage = 1;
      loadRecords();
    }

    async function saveView() {
      const name = q('#view-name').value.trim();
      if (!name) return;
      const f = recordFilters();
      if (f.min_quality == null) delete f.min_quality;
      if (f.max_quality == null) delete f.max_quality;
      try {
        await sendJSON('POST', '/api/v1/views', {name: name, page: 'records', filters: f});
        q('#view-name').value = '';
        loadSavedViews();
      } catch (err) {
        showError('rec-error', err.message);
      }
    }

    // Record modal

    let modalID = '';
    let llmTimer = null;

    async function openRecord(id) {
      modalID = id;
      showError('modal-error', '');
      text('modal-title', 'Record ' + id);
      text('modal-suggestions', '');
      q('#rec-modal').classList.add('open');
      try {
        const r = (await getJSON('/api/v1/records/' + encodeURIComponent(id))).data || {};
        q('#modal-content').value = r.content || '';
        q('#modal-tags').value = (r.tags || []).join(', ');
      } catch (err) {
        showError('modal-error', err.message);
      }
      loadAudit();
      loadLLMCard();
      clearInterval(llmTimer);
      llmTimer = setInterval(loadLLMCard, 5000);
    }

    function closeRecord() {
      clearInterval(llmTimer);
      llmTimer = null;
      modalID = '';
      q('#rec-modal').classList.remove('open');
    }

    async function loadLLMCard() {
      if (!modalID) return;
      try {
        const c = (await getJSON('/api/v1/records/' + encodeURIComponent(modalID) + '/llm')).data || {};
        text('modal-llm', c.triggered
          ? 'LLM confidence: ' + fmtNum(c.llm_confidence, 2) + '\nRules confidence: ' + fmtNum(c.rules_confidence, 2) + '\nStatus: ' + c.status + '\n\n' + (c.suggestions || []).join('\n')
          : 'LLM not triggered. Rules confidence: ' + fmtNum(c.rules_confidence, 2));
      } catch (err) {
        text('modal-llm', err.message);
      }
    }

    async function loadAudit() {
      try {
        const body = await getJSON('/api/v1/records/' + encodeURIComponent(modalID) + '/audit-trail');
        html('modal-audit', (body.data || []).map((a) => '<tr><td>' + fmtTime(a.timestamp) + '</td><td>' + esc(a.action) + '</td><td>' + esc(a.user) + '</td><td>' + esc(a.reason) + '</td></tr>').join('') || emptyRow(4, (body.meta || {}).error || 'No audit entries.'));
      } catch (err) {
        html('modal-audit', emptyRow(4, err.message));
      }
    }

    async function recordAction(action) {
      try {
        await sendJSON('POST', '/api/v1/records/' + encodeURIComponent(modalID) + '/' + action, {
          reason: q('#modal-reason').value,
          content: q('#modal-content').value,
          tags: q('#modal-tags').value,
        });
        showError('modal-error', '');
        loadAudit();
        loadRecords();
      } catch (err) {
        showError('modal-error', err.message);
      }
    }

    async function suggestTags() {
      try {
        const body = await sendJSON('POST', '/api/v1/records/tag-suggestions', {content: q('#modal-content').value, tags: q('#modal-tags').value});
        text('modal-suggestions', 'Suggested: ' + ((body.data || []).join(', ') || 'none'));
      } catch (err) {
        showError('modal-error', err.message);
      }
    }

    // Analytics

    function groupRows(groups, pctKey) {
      return (groups || []).slice(0, 20).map((g) => '<tr><td>' + esc(g.key) + '</td><td>' + g.count + '</td><td>' + fmtNum(g.avg_quality) + '</td><td>' + fmtNum(g[pctKey]) + '%</td></tr>').join('') || emptyRow(4, 'No data.');
    }

    async function loadAnalytics() {
      const p = new URLSearchParams({days: q('#an-days').value});
      if (q('#an-company').value.trim()) p.set('company', q('#an-company').value.trim());
      if (q('#an-connector').value.trim()) p.set('connector', q('#an-connector').value.trim());
      try {
        const body = await getJSON('/api/v1/analytics?' + p.toString());
        const d = body.data || {};
        const s = d.summary || {};
        showError('an-error', (body.meta || {}).error);
        kpis('an-kpis', [
          ['Records', d.record_count || 0],
          ['Avg quality', fmtNum(s.avg_quality)],
          ['Approval rate', fmtNum(s.approval_rate) + '%'],
          ['Issues', s.issue_count || 0],
        ]);
        const max = Math.max(1, ...(d.histogram || []).map((b) => b.count));
        html('an-hist', (d.histogram || []).map((b) => '<tr><td style="width:80px">' + esc(b.label) + '</td><td><div class="bar" style="width:' + Math.round(100 * b.count / max) + '%"></div></td><td style="width:60px">' + b.count + '</td></tr>').join(''));
        html('an-company-body', groupRows(d.by_company, 'reliability_pct'));
        html('an-connector-body', groupRows(d.by_connector, 'reliability_pct'));
        html('an-tag-body', groupRows(d.by_tag, 'relevancy_pct'));
      } catch (err) {
        showError('an-error', err.message);
      }
    }

    // Issues

    async function loadIssues() {
      try {
        const body = await getJSON('/api/v1/issues');
        const d = body.data || {};
        const issues = d.issues || [];
        text('issues-badge', String(issues.length));
        showError('issues-error', d.error);
        text('issues-summary', issues.length + ' issues, ' + (d.auto_fixable || 0) + ' auto-fixable');
        html('issues-body', issues.map((is) =>
          '<tr><td>' + severityPill(is.severity) + '</td><td>' + esc(is.type) + '</td><td>' + esc(is.description) + '</td><td>' + esc(is.suggestion) +
          '</td><td class="mono">' + esc(is.record ? is.record.id : '') + '</td><td>' + (is.autoFixable ? '<button class="btn" data-fix="' + esc(is.id) + '">Auto-fix</button>' : '') + '</td></tr>'
        ).join('') || emptyRow(6, 'No open issues.'));
      } catch (err) {
        showError('issues-error', err.message);
      }
    }

    async function autoFix(id) {
      try {
        if (id) {
          await sendJSON('POST', '/api/v1/issues/' + encodeURIComponent(id) + '/auto-fix', {});
        } else {
          await sendJSON('POST', '/api/v1/issues/auto-fix', {ids: []});
        }
        showError('issues-error', '');
      } catch (err) {
        showError('issues-error', err.message);
      }
      loadIssues();
    }

    // Dead letters

    async function loadDeadLetterOptions() {
      try {
        const opts = (await getJSON('/api/v1/dead-letters/filter-options')).data || {};
        fillSelect('#dl-error-type', opts.error_types, 'Any error type');
        fillSelect('#dl-connector', opts.source_connectors, 'Any connector');
      } catch (err) {
        console.error(err);
      }
    }

    async function loadDeadLetters() {
      const p = new URLSearchParams({limit: 100});
      if (q('#dl-error-type').value) p.set('error_type', q('#dl-error-type').value);
      if (q('#dl-connector').value) p.set('source_connector', q('#dl-connector').value);
      if (q('#dl-resolved').value) p.set('resolved', q('#dl-resolved').value);
      if (q('#dl-search').value.trim()) p.set('search', q('#dl-search').value.trim());
      try {
        const body = await getJSON('/api/v1/dead-letters?' + p.toString());
        const d = body.data || {};
        const s = d.stats || {};
        showError('dl-error', (body.meta || {}).error);
        kpis('dl-kpis', [
          ['Total', s.total_count || 0],
          ['Unresolved', s.unresolved_count || 0],
          ['Resolved', s.resolved_count || 0],
          ['Avg retries', fmtNum(s.avg_retry_count)],
        ]);
        html('dl-body', (d.records || []).map((r) =>
          '<tr><td class="mono">' + esc(r.id) + '</td><td>' + esc(r.error_type) + '</td><td>' + esc(r.error_message) + '</td><td>' + esc(r.source_connector) + '</td><td>' + r.retry_count +
          '</td><td>' + fmtTime(r.failed_at) + '</td><td>' + (r.resolved ? '<span class="pill ok">resolved</span>' : '<span class="pill bad">open</span>') + '</td><td>' +
          '<button class="btn" data-dl="retry" data-id="' + esc(r.id) + '">Retry</button> <button class="btn" data-dl="resolve" data-id="' + esc(r.id) + '">Resolve</button> <button class="btn danger" data-dl="delete" data-id="' + esc(r.id) + '">Delete</button></td></tr>'
        ).join('') || emptyRow(8, 'No dead letters.'));
      } catch (err) {
        showError('dl-error', err.message);
      }
    }

    async function deadLetterAction(action, id) {
      if (action === 'delete' && !confirm('Delete dead letter ' + id + '?')) return;
      try {
        const url = '/api/v1/dead-letters/' + encodeURIComponent(id) + (action === 'delete' ? '' : '/' + action);
        await sendJSON(action === 'delete' ? 'DELETE' : 'POST', url, {});
        loadDeadLetters();
      } catch (err) {
        showError('dl-error', err.message);
      }
    }

    // Settings

    let thresholds = [];

    async function loadSettings() {
      try {
        const body = await getJSON('/api/v1/settings');
        const d = body.data || {};
        const errs = Object.entries(d.errors || {}).map((e) => e[0] + ': ' + e[1]);
        showError('set-error', errs.join('; '));
        thresholds = d.thresholds || [];
        html('set-thresholds', thresholds.map((t, i) =>
          '<div class="field" id="thr-' + i + '"><label for="thr-in-' + i + '">' + esc(t.name) + ' [' + t.min_value + ', ' + t.max_value + ']' + (t.description ? ' ' + esc(t.description) : '') + '</label>' +
          '<div class="toolbar"><input id="thr-in-' + i + '" type="number" step="0.01" min="' + t.min_value + '" max="' + t.max_value + '" value="' + t.current_value + '" data-idx="' + i + '" />' +
          '<button class="btn" data-save-idx="' + i + '">Save</button></div></div>'
        ).join('') || '<span class="hint">No thresholds loaded.</span>');
        qq('#set-thresholds input').forEach((el) => el.addEventListener('input', () => {
          const t = thresholds[Number(el.dataset.idx)];
          el.closest('.field').classList.toggle('changed', Number(el.value) !== t.current_value);
        }));
        const llm = d.llm || {};
        q('#llm-mode').value = llm.mode || 'binary';
        q('#llm-percentage').value = llm.percentage_threshold;
        q('#llm-weighted').value = llm.weighted_threshold;
        q('#llm-range-min').value = llm.range_min_threshold;
        q('#llm-range-max').value = llm.range_max_threshold;
        html('set-history', (d.history || []).map((h) => '<tr><td>' + fmtTime(h.timestamp) + '</td><td>' + esc(h.mode) + '</td><td>' + esc(h.changed_by) + '</td><td>' + esc(h.reason) + '</td></tr>').join('') || emptyRow(4, d.history_error || 'No changes recorded.'));
      } catch (err) {
        showError('set-error', err.message);
      }
    }

    async function saveThresholds() {
      const updates = qq('#set-thresholds input').map((el) => ({name: thresholds[Number(el.dataset.idx)].name, value: Number(el.value)}))
        .filter((u, i) => u.value !== thresholds[i].current_value);
      if (!updates.length) return;
      try {
        await sendJSON('PUT', '/api/v1/settings/thresholds', {updates: updates, reason: q('#set-reason').value});
        loadSettings();
      } catch (err) {
        showError('set-error', err.message);
      }
    }

    async function saveThreshold(idx) {
      const t = thresholds[idx];
      const value = Number(q('#thr-in-' + idx).value);
      if (!t || value === t.current_value) return;
      try {
        await sendJSON('PUT', '/api/v1/settings/thresholds/' + encodeURIComponent(t.name), {value: value, reason: q('#set-reason').value});
        loadSettings();
      } catch (err) {
        showError('set-error', err.message);
      }
    }

    function llmPayload() {
      return {
        mode: q('#llm-mode').value,
        percentage_threshold: Number(q('#llm-percentage').value),
        weighted_threshold: Number(q('#llm-weighted').value),
        range_min_threshold: Number(q('#llm-range-min').value),
        range_max_threshold: Number(q('#llm-range-max').value),
      };
    }

    async function saveLLM() {
      try {
        const payload = llmPayload();
        payload.reason = q('#set-reason').value;
        await sendJSON('PUT', '/api/v1/settings/llm', payload);
        loadSettings();
      } catch (err) {
        showError('set-error', err.message);
      }
    }

    async function resetLLM() {
      if (!confirm('Reset LLM settings to defaults?')) return;
      try {
        await sendJSON('POST', '/api/v1/settings/llm/reset', {});
        loadSettings();
      } catch (err) {
        showError('set-error', err.message);
      }
    }

    async function simulate() {
      const payload = llmPayload();
      payload.sample = q('#llm-sample').value;
      payload.remote = q('#llm-remote').checked;
      try {
        const body = await sendJSON('POST', '/api/v1/settings/llm/simulate', payload);
        text('llm-decision', JSON.stringify(body.data, null, 2));
      } catch (err) {
        text('llm-decision', err.message);
      }
    }

    // Backend test and journal

    async function runBackendTest() {
      text('bt-summary', 'Running...');
      try {
        const body = await getJSON('/api/v1/backend-test');
        const meta = body.meta || {};
        text('bt-summary', meta.endpoint + ': ' + meta.passed + ' passed, ' + meta.failed + ' failed');
        html('bt-body', (body.data || []).map((r) => '<tr><td>' + esc(r.name) + '</td><td class="mono">' + esc(r.path) + '</td><td>' + (r.ok ? '<span class="pill ok">ok</span>' : '<span class="pill bad">fail</span>') + '</td><td>' + (r.status || '-') + '</td><td>' + r.latency_ms + 'ms</td><td>' + esc(r.error) + '</td></tr>').join(''));
      } catch (err) {
        text('bt-summary', err.message);
      }
    }

    const apiTestSamples = {
      records: '{"status":["flagged"],"limit":5}',
      ingest: '{"content":"Sample content for ingestion","tags":["test"]}',
      rules: '{"content":"Sample content","tags":["test"]}',
      llm: '{"content":"Sample content","tags":["test"]}',
      'red-team': '{"content":"Sample content","tags":["test"]}',
      feedback: '{"record_id":"","rating":5,"comment":""}',
    };

    async function loadAPITestCalls() {
      if (q('#at-call').options.length) return;
      try {
        const body = await getJSON('/api/v1/api-test');
        html('at-call', (body.data || []).map((c) => '<option>' + esc(c) + '</option>').join(''));
        q('#at-call').value = 'ingest';
      } catch (err) {
        showError('at-error', err.message);
      }
    }

    async function sendAPITest() {
      showError('at-error', '');
      const call = q('#at-call').value;
      let payload;
      try {
        payload = JSON.parse(q('#at-payload').value || '{}');
      } catch (err) {
        showError('at-error', 'Invalid JSON: ' + err.message);
        return;
      }
      text('at-summary', 'Sending...');
      try {
        const body = await sendJSON('POST', '/api/v1/api-test/' + encodeURIComponent(call), payload);
        const r = body.data || {};
        text('at-summary', r.path + ': ' + (r.ok ? 'ok' : 'failed' + (r.status ? ' (' + r.status + ')' : '')) + ' in ' + r.latency_ms + 'ms');
        text('at-result', JSON.stringify(r.ok ? r.response : r.error, null, 2));
      } catch (err) {
        text('at-summary', '');
        showError('at-error', err.message);
      }
      loadJournal();
    }

    async function loadJournal() {
      try {
        const body = await getJSON('/api/v1/journal?limit=50');
        html('journal-body', (body.data || []).map((e) => '<tr><td>' + fmtTime(e.created_at) + '</td><td>' + esc(e.action) + '</td><td class="mono">' + esc(e.target) + '</td><td>' + esc(e.actor) + '</td><td>' + (e.ok ? '<span class="pill ok">ok</span>' : '<span class="pill bad">' + esc(e.detail || 'failed') + '</span>') + '</td></tr>').join('') || emptyRow(5, 'No actions recorded.'));
      } catch (err) {
        html('journal-body', emptyRow(5, err.message));
      }
    }

    qq('.tab-btn[data-tab]').forEach((btn) => btn.addEventListener('click', () => switchTab(btn.dataset.tab)));
    document.addEventListener('click', () => qq('.dropdown.open').forEach((d) => d.classList.remove('open')));
    q('#rec-apply').addEventListener('click', () => { recPage = 1; loadRecords(); });
    q('#rec-prev').addEventListener('click', () => { if (recPage > 1) { recPage--; loadRecords(); } });
    q('#rec-next').addEventListener('click', () => { recPage++; loadRecords(); });
    q('#view-save').addEventListener('click', saveView);
    q('#view-list').addEventListener('change', applySavedView);
    ['#rec-body', '#dash-recent'].forEach((sel) => q(sel).addEventListener('click', (ev) => {
      const tr = ev.target instanceof Element ? ev.target.closest('tr[data-id]') : null;
      if (tr) openRecord(tr.dataset.id);
    }));
    q('#modal-close').addEventListener('click', closeRecord);
    q('#modal-approve').addEventListener('click', () => recordAction('approve'));
    q('#modal-flag').addEventListener('click', () => recordAction('flag'));
    q('#modal-save').addEventListener('click', () => recordAction('content'));
    q('#modal-reprocess').addEventListener('click', () => recordAction('reprocess'));
    q('#modal-suggest').addEventListener('click', suggestTags);
    q('#an-apply').addEventListener('click', loadAnalytics);
    q('#issues-fix-all').addEventListener('click', () => autoFix(''));
    q('#issues-body').addEventListener('click', (ev) => {
      const btn = ev.target instanceof Element ? ev.target.closest('button[data-fix]') : null;
      if (btn) autoFix(btn.dataset.fix);
    });
    q('#dl-apply').addEventListener('click', loadDeadLetters);
    q('#dl-body').addEventListener('click', (ev) => {
      const btn = ev.target instanceof Element ? ev.target.closest('button[data-dl]') : null;
      if (btn) deadLetterAction(btn.dataset.dl, btn.dataset.id);
    });
    q('#set-save-thresholds').addEventListener('click', saveThresholds);
    q('#set-thresholds').addEventListener('click', (ev) => {
      const btn = ev.target instanceof Element ? ev.target.closest('button[data-save-idx]') : null;
      if (btn) saveThreshold(Number(btn.dataset.saveIdx));
    });
    q('#llm-save').addEventListener('click', saveLLM);
    q('#llm-reset').addEventListener('click', resetLLM);
    q('#llm-simulate').addEventListener('click', simulate);
    q('#bt-run').addEventListener('click', () => runBackendTest().then(loadJournal));
    q('#at-call').addEventListener('change', () => { q('#at-payload').value = apiTestSamples[q('#at-call').value] || '{}'; });
    q('#at-send').addEventListener('click', sendAPITest);

    loadHealth();
    loadDashboard();
    loadIssues();
    setInterval(loadHealth, 30000);
    setInterval(() => { if (currentTab === 'issues' || currentTab === 'dashboard') loadIssues(); }, 30000);
  </script>
</body>
</html>`
